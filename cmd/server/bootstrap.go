package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/prasenjit/go-meraki-mcp/internal/catalog"
	"github.com/prasenjit/go-meraki-mcp/internal/config"
	"github.com/prasenjit/go-meraki-mcp/internal/credentials"
	"github.com/prasenjit/go-meraki-mcp/internal/dispatcher"
	"github.com/prasenjit/go-meraki-mcp/internal/engine"
	"github.com/prasenjit/go-meraki-mcp/internal/logging"
	"github.com/prasenjit/go-meraki-mcp/internal/models"
	"github.com/prasenjit/go-meraki-mcp/internal/stats"
	"github.com/prasenjit/go-meraki-mcp/internal/storage"
	"github.com/prasenjit/go-meraki-mcp/internal/tracing"
)

// loadConfig builds the configuration from viper and sets up logging
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, logger, nil
}

// buildEngine wires the engine from configuration
func buildEngine(cfg *config.Config, logger zerolog.Logger) (*engine.Engine, error) {
	merakiKeys, err := credentials.ParseKeys(cfg.Meraki.APIKeys)
	if err != nil {
		return nil, fmt.Errorf("meraki.apiKeys: %w", err)
	}

	var selentKeys []credentials.KeyPair
	if cfg.Selent.APIKey != "" {
		selentKeys = []credentials.KeyPair{{Label: models.DefaultLabel, Secret: cfg.Selent.APIKey}}
	}

	var extra []*models.OperationSpec
	if cfg.Meraki.CatalogFile != "" {
		extra, err = catalog.LoadFile(cfg.Meraki.CatalogFile, models.BackendMeraki)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("file", cfg.Meraki.CatalogFile).Int("operations", len(extra)).Msg("loaded extra catalog")
	}

	if len(merakiKeys) == 0 {
		logger.Warn().Msg("no Meraki API key configured; set MERAKI_API_KEY or meraki.apiKeys")
	}

	d := cfg.Dispatcher
	return engine.New(engine.Options{
		ExtraOperations: extra,
		MerakiKeys:      merakiKeys,
		SelentKeys:      selentKeys,
		Dispatcher: dispatcher.Options{
			Backends: map[string]dispatcher.Backend{
				models.BackendMeraki: dispatcher.MerakiBackend(cfg.Meraki.BaseURL),
				models.BackendSelent: dispatcher.SelentBackend(cfg.Selent.BaseURL),
			},
			UserAgent:         cfg.Meraki.UserAgent,
			MaxAttempts:       d.MaxAttempts,
			InitialBackoff:    d.InitialBackoff,
			MaxBackoff:        d.MaxBackoff,
			RequestsPerSecond: d.RequestsPerSecond,
			Burst:             d.Burst,
			CacheTTL:          d.CacheTTL,
			RequestTimeout:    d.RequestTimeout,
			MaxParallel:       d.MaxParallel,
			Stats:             stats.NewCollector(),
			Metrics:           stats.NewMetrics(),
			Tracer:            tracing.NewService(cfg.Tracing.MaxTraces, cfg.Tracing.Retention),
		},
		Cache:  storage.NewMemoryCache(),
		Logger: logger,
	})
}

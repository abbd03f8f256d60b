package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prasenjit/go-meraki-mcp/internal/api"
	"github.com/prasenjit/go-meraki-mcp/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the HTTP API in front of the discovery and execution engine.

The server will:
  - Expose the API at /_api/ (search, describe, execute, credentials, traces)
  - Stream live traces over a websocket at /_api/traces/stream
  - Serve Prometheus metrics at /metrics

Configuration is loaded from config.yaml in the current directory,
or specify a custom config file with the --config flag.`,
	RunE: runServe,
}

var discoverOnStart bool

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "Override server port")
	serveCmd.Flags().Bool("tls", false, "Enable TLS (requires server.tls.certFile and keyFile)")
	serveCmd.Flags().BoolVar(&discoverOnStart, "discover", false, "Discover organizations for every Meraki key at startup")

	// Bind flags to viper
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.tls.enabled", serveCmd.Flags().Lookup("tls"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	core, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	if discoverOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Dispatcher.RequestTimeout)
		orgs, err := core.DiscoverOrganizations(ctx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("organization discovery failed")
		} else {
			logger.Info().Int("organizations", len(orgs)).Msg("organizations discovered")
		}
	}

	router := api.NewRouter(core, logging.Component("http"))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Dispatcher.RequestTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		var err error
		if cfg.Server.TLS.Enabled {
			server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			logger.Info().Str("addr", addr).Str("cert", cfg.Server.TLS.CertFile).Msg("starting HTTPS server")
			err = server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			logger.Info().Str("addr", addr).Msg("starting HTTP server")
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	logger.Info().Msg("server stopped")
	return nil
}

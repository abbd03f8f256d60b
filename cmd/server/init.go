package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/prasenjit/go-meraki-mcp/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml",
	Long: `Creates config.yaml with the default settings.

API keys are left empty; set MERAKI_API_KEY (for example
"prod:abc123,lab:def456") and SELENT_API_KEY in the environment or a
.env file instead of writing them to disk.

If config.yaml already exists, it will not be overwritten unless --force is used.`,
	RunE: runInit,
}

var (
	initForce bool
	initPath  string
)

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing config file")
	initCmd.Flags().StringVarP(&initPath, "path", "p", ".", "Path where to initialize (default: current directory)")
}

func runInit(cmd *cobra.Command, args []string) error {
	absPath, err := filepath.Abs(initPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", absPath, err)
	}

	configFile := filepath.Join(absPath, "config.yaml")

	// Check if config already exists
	if _, err := os.Stat(configFile); err == nil && !initForce {
		return fmt.Errorf("config.yaml already exists. Use --force to overwrite")
	}

	data, err := yaml.Marshal(defaultConfigMap(config.Default()))
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	header := `# Meraki MCP configuration
# Keys come from MERAKI_API_KEY / SELENT_API_KEY; any setting can be
# overridden with MERAKIMCP_<SECTION>_<KEY>, e.g. MERAKIMCP_SERVER_PORT.

`
	if err := os.WriteFile(configFile, []byte(header+string(data)), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", configFile)

	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), "Initialization complete! Start the server with:")
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "  cd %s\n", absPath)
	fmt.Fprintln(cmd.OutOrStdout(), "  meraki-mcp serve")
	fmt.Fprintln(cmd.OutOrStdout())

	return nil
}

// defaultConfigMap renders cfg with durations as strings, the form viper reads back
func defaultConfigMap(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"port": cfg.Server.Port,
			"host": cfg.Server.Host,
			"tls": map[string]interface{}{
				"enabled":  cfg.Server.TLS.Enabled,
				"certFile": cfg.Server.TLS.CertFile,
				"keyFile":  cfg.Server.TLS.KeyFile,
			},
		},
		"meraki": map[string]interface{}{
			"baseURL":     cfg.Meraki.BaseURL,
			"userAgent":   cfg.Meraki.UserAgent,
			"catalogFile": cfg.Meraki.CatalogFile,
		},
		"selent": map[string]interface{}{
			"baseURL": cfg.Selent.BaseURL,
		},
		"dispatcher": map[string]interface{}{
			"maxAttempts":       cfg.Dispatcher.MaxAttempts,
			"initialBackoff":    cfg.Dispatcher.InitialBackoff.String(),
			"maxBackoff":        cfg.Dispatcher.MaxBackoff.String(),
			"requestsPerSecond": cfg.Dispatcher.RequestsPerSecond,
			"burst":             cfg.Dispatcher.Burst,
			"cacheTTL":          cfg.Dispatcher.CacheTTL.String(),
			"requestTimeout":    cfg.Dispatcher.RequestTimeout.String(),
			"maxParallel":       cfg.Dispatcher.MaxParallel,
		},
		"tracing": map[string]interface{}{
			"maxTraces": cfg.Tracing.MaxTraces,
			"retention": cfg.Tracing.Retention.String(),
		},
		"logging": map[string]interface{}{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
		},
	}
}

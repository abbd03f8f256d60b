package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prasenjit/go-meraki-mcp/internal/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "meraki-mcp",
		Short: "Meraki MCP - endpoint discovery and execution for the Meraki Dashboard API",
		Long: `Meraki MCP exposes the Meraki Dashboard API and the Selent backup and
compliance API through a small set of tools: search for an operation,
inspect its parameters, then execute it with cached, rate-limited and
retried calls across one or more API keys.`,
		Version: Version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(initCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			cwd = "."
		}

		// Search config in current directory
		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// MERAKIMCP_DISPATCHER_CACHETTL overrides dispatcher.cacheTTL, and so on
	viper.SetEnvPrefix("MERAKIMCP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// The plain key variables used by existing deployments
	viper.BindEnv("meraki.apiKeys", "MERAKIMCP_MERAKI_APIKEYS", "MERAKI_API_KEY")
	viper.BindEnv("selent.apiKey", "MERAKIMCP_SELENT_APIKEY", "SELENT_API_KEY")
	viper.BindEnv("selent.baseURL", "MERAKIMCP_SELENT_BASEURL", "SELENT_API_BASE_URL")

	config.SetDefaults(viper.GetViper())

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

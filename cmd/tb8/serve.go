package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	apihttp "github.com/tb8/tb8/adapters/http"
	"github.com/tb8/tb8/bootstrap"
	"github.com/tb8/tb8/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the tb8 gateway server.

The server will:
  - Load configuration from tb8.yaml (or --config)
  - Or load configuration from environment variables
  - Serve the line, arrival and disruption routes on the configured port

Environment variables (for Docker deployments):
  TFL_API_PRIMARY_ACCESS_KEY - TfL application key (required)
  TFL_API_KEY_ID             - TfL application id (default: tb8-rs)
  TFL_API_BASE_URL           - Upstream URL (default: https://api.tfl.gov.uk)
  PORT                       - Server port (default: 4000)
  TB8_LOG_LEVEL              - Log level: debug, info, warn, error
  TB8_METRICS_ENABLED        - Expose Prometheus metrics

Examples:
  tb8 serve
  tb8 serve --config /etc/tb8/tb8.yaml
  tb8 serve --hot-reload=false

  # Docker (env vars only):
  TFL_API_PRIMARY_ACCESS_KEY=... tb8 serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&hotReload, "hot-reload", true, "reload the log level when the config file changes")
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	// No configuration at all
	if !hasConfigFile && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No configuration found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Option 1: Create %s with an upstream.app_key\n", cfgFile)
		fmt.Fprintln(out, "Option 2: Set TFL_API_PRIMARY_ACCESS_KEY environment variable (or put it in .env)")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Example (env vars):")
		fmt.Fprintln(out, "  TFL_API_PRIMARY_ACCESS_KEY=... tb8 serve")
		return fmt.Errorf("no configuration found")
	}

	opts := bootstrap.Options{Version: buildInfo()}

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with config file
		app, err = bootstrap.NewWithHotReload(cfgFile, opts)
	} else {
		// Load config (file with env overrides, or env-only)
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Fprintln(cmd.OutOrStdout(), "Running with environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg, opts)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}

func buildInfo() apihttp.BuildInfo {
	return apihttp.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
		Service:   "tb8",
	}
}

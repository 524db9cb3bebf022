package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tb8/tb8/adapters/tfl"
	"github.com/tb8/tb8/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the tb8 configuration.

Checks:
  - YAML syntax is valid (when a config file exists)
  - Required fields are present, after environment overrides
  - TfL API is reachable (optional)

Examples:
  tb8 validate
  tb8 validate --config /etc/tb8/tb8.yaml --check-upstream`,
	RunE: runValidate,
}

var (
	validateCheckUpstream bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckUpstream, "check-upstream", false, "check if the TfL API is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); err == nil {
		fmt.Fprintf(out, "  %s Config file exists\n", checkMark)
	} else {
		fmt.Fprintf(out, "  %s Config file exists (falling back to environment)\n", crossMark)
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	// Show config summary
	fmt.Fprintf(out, "  %s Upstream: %s\n", checkMark, cfg.Upstream.URL)
	fmt.Fprintf(out, "  %s App id: %s\n", checkMark, cfg.Upstream.AppID)
	fmt.Fprintf(out, "  %s Listen: %s:%d\n", checkMark, cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(out, "  %s Metrics enabled: %t\n", checkMark, cfg.Metrics.Enabled)

	// Optional: check upstream
	if validateCheckUpstream {
		if err := checkUpstreamReachable(cmd.Context(), cfg.Upstream); err != nil {
			fmt.Fprintf(out, "  %s Upstream reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Upstream reachable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkUpstreamReachable(ctx context.Context, up config.UpstreamConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := tfl.NewClient(tfl.Config{
		BaseURL: up.URL,
		AppID:   up.AppID,
		AppKey:  up.AppKey,
		Timeout: 5 * time.Second,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	return client.HealthCheck(ctx)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

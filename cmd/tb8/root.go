package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tb8/tb8/config"
)

var (
	// Global flags
	cfgFile string
	envFile string
)

// rootCmd represents the base command when called without any subcommands.
// Running it bare starts the server.
var rootCmd = &cobra.Command{
	Use:   "tb8",
	Short: "Gateway for the TfL Unified API",
	Long: `tb8 is a thin, read-only gateway in front of the TfL Unified API.

It authenticates every upstream call with your TfL application key and
wraps each answer in an envelope carrying request timing and an echoed
query string.

Quick start:
  TFL_API_PRIMARY_ACCESS_KEY=... tb8        # serve on :4000
  tb8 serve --config tb8.yaml              # serve with a config file
  tb8 validate --check-upstream            # check configuration`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
	RunE: runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before configuration")
}

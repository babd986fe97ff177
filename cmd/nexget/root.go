package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"nexget/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nexget",
	Short: "Download NEXRAD Level-II radar archives from the NCDC bulk-download service",
	Long: `nexget downloads NEXRAD Level-II radar archive files for a radar site and date.

It fetches the NCDC bulk-download index page, extracts the archive file links,
and downloads them concurrently into a per-date output directory.

Features:
  - Resilient link extraction that survives index page markup changes
  - Concurrent downloads with a configurable worker count
  - Live single-line download progress
  - Interactive prompts when site or date are not given as arguments`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			logLevel = "error"
			return
		}
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
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
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .nexget.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors and progress")

	// Version template
	rootCmd.SetVersionTemplate(`nexget {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

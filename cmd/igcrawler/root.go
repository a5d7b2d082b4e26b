package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "igcrawler",
	Short: "A resumable Instagram video crawler",
	Long: `igcrawler walks Instagram accounts sequentially, extracts video posts
into a JSON Lines dataset, optionally downloads the media files, and
checkpoints its progress so an interrupted run picks up where it stopped.

Features:
  - Resumable crawls with periodic checkpoints (file or Redis backed)
  - Automatic retry with exponential backoff on transient failures
  - Per-item filters: videos only, minimum likes, date range
  - Secure credential storage using the system keychain
  - Rate limiting to stay under API thresholds`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .igcrawler.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`igcrawler {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

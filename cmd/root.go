/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Flags shared by every command that needs the catalog or a logger
var (
	catalogFile string
	logFile     string
	logLevel    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tuner",
	Short: "Themeable internet radio for the terminal",
	Long: `tuner is an internet radio player for the terminal.

It plays a fixed list of streaming stations. Skip between them with a
short tuning transition, control volume and mute, and switch between
cosmetic themes that recolour the radio.

Running tuner without a subcommand starts the radio (same as 'tuner play').`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	RunE:          runPlay,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "Catalog YAML file (default: config catalog_file, else built-in)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default: config log_file, else ~/.local/share/tuner/tuner.log)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	addPlayFlags(rootCmd)
}

package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/MalcolmCusack/zaymo-url-shortener/internal/config"
)

// Cfg is the global variable holding the loaded configuration, accessible
// to all Cobra commands throughout the application.
var Cfg *config.Config

// RootCmd is the base command for the CLI application. The subcommands
// (run-server, shorten, stats, migrate) register themselves via their own
// init() functions to keep imports acyclic.
var RootCmd = &cobra.Command{
	Use:   "zaymo",
	Short: "An email HTML link shortener",
	Long: `Rewrites HTML email bodies so outbound hyperlinks become short
redirect codes, keeping payloads under provider clipping limits and
enabling click analytics.`,
}

// Execute is the main entry point for the Cobra application, called from
// main.go.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Configuration loads before any command runs.
	cobra.OnInitialize(initConfig)
}

// initConfig loads the application configuration; it runs once at the start
// of every command thanks to cobra.OnInitialize above.
func initConfig() {
	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Problem loading configuration: %v. Using default values.", err)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bioscout CLI.
// Implements: prd006-cli (command surface);
//
//	docs/ARCHITECTURE § CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/bioscout/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if non-empty, else the named secret.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the bioscout CLI.
var rootCmd = &cobra.Command{
	Use:   "bioscout",
	Short: "Aggregated biomedical literature search",
	Long: `bioscout searches PubMed, bioRxiv, and Europe PMC concurrently for a set
of keywords inside a publication date window, merges and deduplicates the
results across sources, and ranks them by how many keywords each article
matches. A failed source never aborts the run: whatever the other sources
returned is still ranked and reported.

Results can be rendered as text or JSON, saved to a YAML query file, or
archived into a local SQLite library for later full-text lookup.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bioscout.yaml or ~/.config/bioscout/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bioscout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bioscout"))
		}
	}

	viper.SetEnvPrefix("BIOSCOUT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

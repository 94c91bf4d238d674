// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-scanner CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-scanner/internal/logger"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// cfg is the configuration resolved from file, environment and flags.
	cfg types.PipelineConfig

	// log is built from cfg.Log once flags are parsed.
	log logger.Logger = logger.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "paper-scanner",
	Short: "Extract research findings from academic papers",
	Long: `paper-scanner reads an academic paper chunk by chunk and asks a language
model which research findings each chunk introduces or refines. The findings
are merged as the scan progresses and consolidated into a deduplicated set at
the end, together with the paper's title, authors, date and abstract.

Runs are recorded in a local SQLite database and can be listed, searched and
exported with the runs subcommand.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		log = logger.New(logger.Config{
			Level:      cfg.Log.Level,
			Output:     os.Stderr,
			JSON:       cfg.Log.JSON,
			TimeFormat: logger.DefaultConfig().TimeFormat,
		})
		if used := viper.ConfigFileUsed(); used != "" {
			log.Debug("using config file", "path", used)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./paper-scanner.yaml or ~/.config/paper-scanner/paper-scanner.yaml)")
	flags.String("secrets-dir", ".secrets", "directory holding API key files")
	flags.String("store-dir", "", "base directory for results and the runs database (default: scans)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("log-json", false, "log in JSON format")

	for key, flag := range map[string]string{
		"store.dir": "store-dir",
		"log.level": "log-level",
		"log.json":  "log-json",
	} {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-scanner")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-scanner"))
		}
	}

	registerDefaults(viper.GetViper())
	viper.SetEnvPrefix("PAPER_SCANNER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"os/user"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-scanner/internal/convert"
	"github.com/pdiddy/paper-scanner/internal/knowledge"
	"github.com/pdiddy/paper-scanner/internal/llm"
	"github.com/pdiddy/paper-scanner/internal/metrics"
	"github.com/pdiddy/paper-scanner/internal/pipeline"
	"github.com/pdiddy/paper-scanner/internal/scanner"
	"github.com/pdiddy/paper-scanner/internal/secrets"
)

var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Extract findings from papers",
	Long: `Scan reads Markdown or PDF papers, runs the chunk-by-chunk extraction loop
against the language model, and writes one YAML result per paper to
<store-dir>/results. Every run, successful or not, is recorded in the runs
database.

With --dir, every .md, .markdown and .pdf file in the directory is scanned;
papers whose result is newer than the source are skipped unless --force is
given.`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" && len(args) == 0 {
		return errors.New("provide files to scan or --dir")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	secretsDir, _ := cmd.Flags().GetString("secrets-dir")
	apiKey := cfg.AI.APIKey
	if apiKey == "" {
		key, err := secrets.AnthropicAPIKey(secretsDir, log)
		if err != nil {
			return err
		}
		apiKey = key
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.AI.Model = model
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	backend := &llm.ClaudeBackend{
		APIKey:    apiKey,
		Model:     cfg.AI.Model,
		MaxTokens: cfg.AI.MaxTokens,
	}
	client := llm.NewClient(backend, cfg.AI, llm.WithLogger(log), llm.WithMetrics(m))
	sc := scanner.New(client, cfg.Scanner, scanner.WithLogger(log), scanner.WithMetrics(m))

	store, err := knowledge.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	userName, _ := cmd.Flags().GetString("user")
	opts := []pipeline.Option{
		pipeline.WithStore(store),
		pipeline.WithSplit(cfg.Split),
		pipeline.WithRunInfo(userName, version),
		pipeline.WithLogger(log),
	}
	if conv, err := convert.New(ctx, cfg.Conversion); err != nil {
		log.Warn("PDF conversion unavailable", "backend", cfg.Conversion.Backend, "err", err)
	} else {
		opts = append(opts, pipeline.WithConverter(conv))
	}
	p := pipeline.New(sc, cfg.Store.Dir, opts...)

	out := cmd.OutOrStdout()
	var failed int
	if dir != "" {
		force, _ := cmd.Flags().GetBool("force")
		summary, err := p.ScanAll(ctx, dir, force, out)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nScanned: %d  Skipped: %d  Failed: %d\n", summary.Scanned, summary.Skipped, summary.Failed)
		failed = summary.Failed
	}

	for _, path := range args {
		if ctx.Err() != nil {
			break
		}
		outcome, err := p.ScanFile(ctx, path)
		if outcome != nil {
			renderRecord(out, outcome.Record, false)
			if outcome.OutputPath != "" {
				fmt.Fprintf(out, "\n%s %s\n\n", labelStyle.Render("Written to"), outcome.OutputPath)
			}
		}
		if err != nil {
			failed++
			log.Error("scan failed", "file", path, "err", err)
		}
	}

	if metricsFile, _ := cmd.Flags().GetString("metrics-file"); metricsFile != "" {
		if err := prometheus.WriteToTextfile(metricsFile, reg); err != nil {
			log.Warn("could not write metrics", "path", metricsFile, "err", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d paper(s) failed", failed)
	}
	return ctx.Err()
}

func defaultUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func init() {
	scanCmd.Flags().String("dir", "", "scan every paper in this directory")
	scanCmd.Flags().Bool("force", false, "rescan papers whose result is up to date")
	scanCmd.Flags().String("user", defaultUser(), "user name recorded with each run")
	scanCmd.Flags().String("model", "", "model identifier (default from config)")
	scanCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this file after the run")

	rootCmd.AddCommand(scanCmd)
}

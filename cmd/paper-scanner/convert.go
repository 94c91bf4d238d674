// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-scanner/internal/convert"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdfs...]",
	Short: "Convert PDF papers to Markdown",
	Long: `Convert turns PDF files into Markdown files that scan can read. The pdftext
backend extracts the text layer in process; the markitdown backend runs the
markitdown container image under docker or podman and keeps more structure.

Existing Markdown output is never overwritten.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	backend, _ := cmd.Flags().GetString("backend")
	outDir, _ := cmd.Flags().GetString("out-dir")
	if outDir == "" {
		outDir = filepath.Join(cfg.Store.Dir, "markdown")
	}

	convCfg := cfg.Conversion
	if backend != "" {
		convCfg.Backend = types.ConversionBackend(backend)
	}
	conv, err := convert.New(ctx, convCfg)
	if err != nil {
		return err
	}

	result := convert.ConvertBatch(ctx, conv, args, outDir, cmd.OutOrStdout())
	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return ctx.Err()
}

func init() {
	convertCmd.Flags().String("backend", "", "conversion backend: pdftext or markitdown (default from config)")
	convertCmd.Flags().String("out-dir", "", "directory for Markdown output (default: <store-dir>/markdown)")

	rootCmd.AddCommand(convertCmd)
}

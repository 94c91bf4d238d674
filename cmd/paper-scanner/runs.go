// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-scanner/internal/knowledge"
	"github.com/pdiddy/paper-scanner/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded scan runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := runFilter(cmd)
		if err != nil {
			return err
		}
		return withStore(func(s *knowledge.Store) error {
			runs, err := s.ListRuns(cmd.Context(), f)
			if err != nil {
				return err
			}
			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		raw, _ := cmd.Flags().GetBool("raw")
		return withStore(func(s *knowledge.Store) error {
			rec, err := s.GetRun(cmd.Context(), args[0])
			if errors.Is(err, knowledge.ErrNotFound) {
				return fmt.Errorf("no run with id %s", args[0])
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, rec)
			}
			renderRecord(cmd.OutOrStdout(), *rec, raw)
			return nil
		})
	},
}

var runsSearchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search consolidated findings across runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var q knowledge.FindingQuery
		if len(args) == 1 {
			q.Text = args[0]
		}
		q.Keyword, _ = cmd.Flags().GetString("keyword")
		q.RunID, _ = cmd.Flags().GetString("run")
		q.MaxResults, _ = cmd.Flags().GetInt("limit")
		if q.Text == "" && q.Keyword == "" && q.RunID == "" {
			return errors.New("provide search text, --keyword or --run")
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		return withStore(func(s *knowledge.Store) error {
			results, err := s.SearchFindings(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, results)
			}
			renderSearch(cmd, results)
			return nil
		})
	},
}

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export runs to <store-dir>/index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := runFilter(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return withStore(func(s *knowledge.Store) error {
			var path string
			switch format {
			case "yaml":
				path, err = s.ExportYAML(cmd.Context(), f)
			case "json":
				path, err = s.ExportJSON(cmd.Context(), f)
			default:
				return fmt.Errorf("unknown export format %q (want yaml or json)", format)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
			return nil
		})
	},
}

func withStore(fn func(*knowledge.Store) error) error {
	s, err := knowledge.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func runFilter(cmd *cobra.Command) (knowledge.RunFilter, error) {
	var f knowledge.RunFilter
	f.User, _ = cmd.Flags().GetString("user")
	f.Limit, _ = cmd.Flags().GetInt("limit")

	status, _ := cmd.Flags().GetString("status")
	switch types.RunStatus(status) {
	case "", types.RunSuccess, types.RunError:
		f.Status = types.RunStatus(status)
	default:
		return f, fmt.Errorf("unknown status %q (want success or error)", status)
	}
	return f, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSearch(cmd *cobra.Command, results []knowledge.FindingResult) {
	w := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(w, "No findings matched.")
		return
	}
	for i, r := range results {
		source := r.PaperTitle
		if source == "" {
			source = r.FileName
		}
		fmt.Fprintf(w, "%2d. %s\n", i+1, titleStyle.Render(r.Title))
		fmt.Fprintf(w, "    %s %s (%s)\n", labelStyle.Render("From:"), source, r.RunID)
		if len(r.Keywords) > 0 {
			fmt.Fprintf(w, "    %s %s\n", labelStyle.Render("Keywords:"), strings.Join(r.Keywords, ", "))
		}
		fmt.Fprintf(w, "    %s\n\n", r.Summary)
	}
}

func init() {
	for _, c := range []*cobra.Command{runsListCmd, runsExportCmd} {
		c.Flags().String("user", "", "only runs started by this user")
		c.Flags().String("status", "", "only runs with this status: success or error")
	}
	runsListCmd.Flags().Int("limit", 0, "maximum runs to list (default from config)")
	runsExportCmd.Flags().Int("limit", 0, "maximum runs to export (0 for all)")
	runsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	runsShowCmd.Flags().Bool("json", false, "print the run as JSON")
	runsShowCmd.Flags().Bool("raw", false, "include raw findings with their source chunk text")

	runsSearchCmd.Flags().String("keyword", "", "only findings carrying this keyword")
	runsSearchCmd.Flags().String("run", "", "only findings from this run")
	runsSearchCmd.Flags().Int("limit", 0, "maximum findings (default from config)")
	runsSearchCmd.Flags().Bool("json", false, "print results as JSON")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsSearchCmd, runsExportCmd)
	rootCmd.AddCommand(runsCmd)
}

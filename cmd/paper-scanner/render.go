// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	findingStyle = lipgloss.NewStyle().PaddingLeft(3)
	chunkStyle   = lipgloss.NewStyle().PaddingLeft(6).Foreground(lipgloss.Color("#AAAAAA"))
)

func statusText(s types.RunStatus) string {
	if s == types.RunSuccess {
		return successStyle.Render(string(s))
	}
	return errorStyle.Render(string(s))
}

func field(w io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label+":")), value)
}

// renderRecord prints a run and, for successful runs, its paper metadata
// and consolidated findings. withRaw adds the raw findings, each followed by
// the text of its source chunks.
func renderRecord(w io.Writer, rec types.RunRecord, withRaw bool) {
	run := rec.Run
	fmt.Fprintln(w, titleStyle.Render(run.FileName))
	field(w, "Run", run.ID)
	field(w, "Status", statusText(run.Status))
	field(w, "User", run.User)
	field(w, "Version", run.Version)
	if !run.StartedAt.IsZero() {
		field(w, "Started", run.StartedAt.Local().Format(time.DateTime))
	}
	if !run.EndedAt.IsZero() && !run.StartedAt.IsZero() {
		field(w, "Duration", run.EndedAt.Sub(run.StartedAt).Round(time.Second).String())
	}
	field(w, "Error", run.Error)

	res := rec.Result
	if res == nil {
		return
	}

	fmt.Fprintln(w)
	field(w, "Title", res.Metadata.Title)
	field(w, "Authors", strings.Join(res.Metadata.Authors, ", "))
	field(w, "Published", res.Metadata.PublicationDate)
	field(w, "Chunks", fmt.Sprint(len(res.Chunks)))
	field(w, "Raw", fmt.Sprintf("%d findings", len(res.RawFindings)))

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Findings (%d)", len(res.ConsolidatedFindings))))
	for i, f := range res.ConsolidatedFindings {
		fmt.Fprintf(w, "%2d. %s\n", i+1, f.Title)
		var b strings.Builder
		b.WriteString(f.Summary)
		if f.Methodology != "" {
			b.WriteString("\n" + labelStyle.Render("Method: ") + f.Methodology)
		}
		if len(f.Keywords) > 0 {
			b.WriteString("\n" + labelStyle.Render("Keywords: ") + strings.Join(f.Keywords, ", "))
		}
		fmt.Fprintln(w, findingStyle.Render(b.String()))
	}

	if withRaw {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Raw findings (%d)", len(res.RawFindings))))
		chunks := make(map[string]string, len(res.Chunks))
		for _, c := range res.Chunks {
			chunks[c.ChunkID] = c.Content
		}
		for i, f := range res.RawFindings {
			fmt.Fprintf(w, "%2d. %s %s\n", i+1, f.Title, labelStyle.Render(fmt.Sprintf("[%d chunks]", len(f.SourceChunkIDs))))
			if f.Summary != "" {
				fmt.Fprintln(w, findingStyle.Render(f.Summary))
			}
			for _, id := range f.SourceChunkIDs {
				fmt.Fprintln(w, findingStyle.Render(labelStyle.Render("Chunk "+id+":")))
				content, ok := chunks[id]
				if !ok {
					content = "(chunk text not recorded)"
				}
				fmt.Fprintln(w, chunkStyle.Render(strings.TrimSpace(content)))
			}
		}
	}
}

// renderRuns prints one line per run.
func renderRuns(w io.Writer, runs []types.RunInfo) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-7s  %-19s  %-12s  %s\n", "Run", "Status", "Started", "User", "File")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range runs {
		started := ""
		if !r.StartedAt.IsZero() {
			started = r.StartedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%-36s  %-7s  %-19s  %-12s  %s\n",
			r.ID, r.Status, started, truncate(r.User, 12), r.FileName)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}

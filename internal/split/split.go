// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package split cuts a Markdown document into ordered text chunks for the
// scanner. Sections start at ATX headings; sections longer than the
// configured size are split further by langchaingo's Markdown splitter.
package split

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/pdiddy/paper-scanner/pkg/types"
)

const defaultChunkSize = 10000

// section is the Markdown under one heading, heading line included.
type section struct {
	heading string
	body    string
}

// Markdown splits content into chunks. Each heading (# through ######)
// starts a new section that keeps its heading line; text before the first
// heading forms its own section. Frontmatter is dropped. Sections within
// cfg.ChunkSize characters are returned whole.
func Markdown(content string, cfg types.SplitConfig) ([]string, error) {
	size := cfg.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []string
	for _, sec := range chunkByHeadings(stripFrontmatter(content)) {
		text := strings.TrimSpace(sec.body)
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) <= size {
			chunks = append(chunks, text)
			continue
		}

		splitter := textsplitter.NewMarkdownTextSplitter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		)
		parts, err := splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("splitting section %q: %w", sec.heading, err)
		}
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				chunks = append(chunks, p)
			}
		}
	}
	return chunks, nil
}

// chunkByHeadings splits Markdown into sections at heading boundaries. Lines
// inside fenced code blocks are never treated as headings.
func chunkByHeadings(content string) []section {
	lines := strings.Split(content, "\n")
	var sections []section
	currentHeading := ""
	var bodyLines []string
	inFence := false

	flush := func() {
		body := strings.Join(bodyLines, "\n")
		if strings.TrimSpace(body) != "" {
			sections = append(sections, section{heading: currentHeading, body: body})
		}
		bodyLines = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
		}

		if !inFence && isHeading(trimmed) {
			flush()
			currentHeading = stripHeadingPrefix(trimmed)
		}
		bodyLines = append(bodyLines, line)
	}

	flush()
	return sections
}

// isHeading reports whether line is an ATX heading of level 1 to 6.
func isHeading(line string) bool {
	level := 0
	for level < len(line) && line[level] == '#' {
		level++
	}
	return level >= 1 && level <= 6 && len(line) > level && line[level] == ' '
}

// stripHeadingPrefix removes the leading # characters and whitespace.
func stripHeadingPrefix(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}

// stripFrontmatter drops a leading YAML frontmatter block delimited by ---.
func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---\n") {
		return content
	}
	end := strings.Index(content[4:], "\n---")
	if end < 0 {
		return content
	}
	rest := content[4+end+len("\n---"):]
	return strings.TrimPrefix(rest, "\n")
}

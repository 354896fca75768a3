package notes

import (
	"regexp"
	"strings"

	"github.com/readstack/readstack-mcp/api"
	"github.com/readstack/readstack-mcp/diagram"
)

// metaLine matches one `key: value` line of a leading metadata block.
var metaLine = regexp.MustCompile(`^([A-Za-z][\w -]*):\s*(.*)$`)

// SplitFrontMatter separates a leading block of simple `key: value` lines
// from the note body. The block ends at the first blank or non-matching
// line; notes without one come back with an empty map.
func SplitFrontMatter(content string) (map[string]string, string) {
	meta := map[string]string{}
	lines := strings.Split(content, "\n")
	i := 0
	for ; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			if len(meta) > 0 {
				i++
			}
			break
		}
		m := metaLine.FindStringSubmatch(trimmed)
		if m == nil || strings.HasPrefix(trimmed, "#") {
			break
		}
		meta[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
	}
	if len(meta) == 0 {
		return meta, content
	}
	return meta, strings.TrimLeft(strings.Join(lines[i:], "\n"), "\n")
}

// statusLineMarkers are boilerplate progress lines the note generator leaves
// behind, in the locales the pipeline has emitted over time. Any line
// starting with one of these is dropped.
var statusLineMarkers = []string{
	"Processing complete",
	"Processing...",
	"Analysis finished",
	"Generated by readstack",
	"処理が完了しました",
	"解析中",
}

// rawOutputMarkers open a raw tool-output section that runs until the next
// markdown heading or the end of the note.
var rawOutputMarkers = []string{
	"Raw output:",
	"--- raw ---",
	"生の出力:",
}

// StripBoilerplate removes generator status lines and raw-output sections
// from a note body before rendering.
func StripBoilerplate(body string) string {
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	skipping := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if skipping {
			if strings.HasPrefix(trimmed, "#") {
				skipping = false
			} else {
				continue
			}
		}
		if startsWithAny(trimmed, rawOutputMarkers) {
			skipping = true
			continue
		}
		if startsWithAny(trimmed, statusLineMarkers) {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n")) + "\n"
}

func startsWithAny(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// SegmentKind discriminates rendered note segments.
type SegmentKind string

const (
	SegmentMarkdown SegmentKind = "markdown"
	SegmentDiagram  SegmentKind = "diagram"
)

// Segment is one renderable piece of a note body: plain markdown (tables and
// math pass through for the frontend renderer) or a prepared diagram block.
type Segment struct {
	Kind     SegmentKind    `json:"kind"`
	Markdown string         `json:"markdown,omitempty"`
	Diagram  *diagram.Block `json:"diagram,omitempty"`
}

// Segments splits a body at fenced mermaid blocks and runs each through the
// diagram repair pass. Other fenced blocks stay inside markdown segments.
func Segments(body string) []Segment {
	var segments []Segment
	var md []string
	flush := func() {
		if len(md) > 0 {
			segments = append(segments, Segment{Kind: SegmentMarkdown, Markdown: strings.Join(md, "\n")})
			md = nil
		}
	}

	lines := strings.Split(body, "\n")
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "```mermaid") {
			var block []string
			j := i + 1
			for ; j < len(lines); j++ {
				if strings.TrimSpace(lines[j]) == "```" {
					break
				}
				block = append(block, lines[j])
			}
			if j < len(lines) {
				flush()
				prepared := diagram.Prepare(strings.Join(block, "\n"))
				segments = append(segments, Segment{Kind: SegmentDiagram, Diagram: &prepared})
				i = j
				continue
			}
			// Unterminated fence: leave the rest as markdown.
		}
		md = append(md, lines[i])
	}
	flush()
	return segments
}

// SelectTab picks the note kind to display: the preferred tab when it has
// content, otherwise whichever of paper/code does, preferring paper.
func SelectTab(preferred api.NoteKind, bundle *api.NotesBundle) api.NoteKind {
	hasPaper := bundle.Paper.Available && (bundle.Paper.Content != "" || bundle.Paper.URL != "")
	hasCode := bundle.Code.Available && (bundle.Code.Content != "" || bundle.Code.URL != "")
	switch preferred {
	case api.NotePaper:
		if hasPaper {
			return api.NotePaper
		}
	case api.NoteCode:
		if hasCode {
			return api.NoteCode
		}
	}
	if hasPaper {
		return api.NotePaper
	}
	if hasCode {
		return api.NoteCode
	}
	return api.NotePaper
}

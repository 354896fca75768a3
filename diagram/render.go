package diagram

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
)

// Block is a prepared diagram ready for a renderer. When Fallback is set the
// normalized source still looks unrenderable and the UI should show Source
// inside a collapsible disclosure instead.
type Block struct {
	// ContainerID is unique per render so concurrent or repeated renders
	// never collide on a shared offscreen element id.
	ContainerID string `json:"containerId"`
	Source      string `json:"source"`
	Normalized  string `json:"normalized"`
	Fallback    bool   `json:"fallback"`
}

var renderSeq atomic.Uint64

// headerKeywords are the diagram types mermaid accepts on the first
// meaningful line.
var headerKeywords = []string{
	"graph", "flowchart", "sequenceDiagram", "classDiagram", "stateDiagram",
	"stateDiagram-v2", "erDiagram", "gantt", "pie", "journey", "mindmap",
	"timeline", "gitGraph",
}

// Prepare normalizes a fenced diagram source and decides whether it is worth
// handing to a renderer at all.
func Prepare(source string) Block {
	normalized := Normalize(source)
	return Block{
		ContainerID: fmt.Sprintf("readstack-diagram-%d", renderSeq.Add(1)),
		Source:      source,
		Normalized:  normalized,
		Fallback:    !looksRenderable(normalized),
	}
}

var initDirective = regexp.MustCompile(`^%%\{.*\}%%$`)

// looksRenderable is a cheap plausibility check, not a parser: the first
// meaningful line must open a known diagram type and brackets must balance.
func looksRenderable(source string) bool {
	header := ""
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || initDirective.MatchString(trimmed) {
			continue
		}
		header = trimmed
		break
	}
	if header == "" {
		return false
	}
	first := strings.Fields(header)[0]
	known := false
	for _, kw := range headerKeywords {
		if first == kw {
			known = true
			break
		}
	}
	if !known {
		return false
	}
	return bracketsBalanced(source)
}

func bracketsBalanced(source string) bool {
	depth := map[rune]int{}
	pairs := map[rune]rune{']': '[', ')': '(', '}': '{'}
	inQuote := false
	for _, r := range source {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch r {
		case '[', '(', '{':
			depth[r]++
		case ']', ')', '}':
			depth[pairs[r]]--
			if depth[pairs[r]] < 0 {
				return false
			}
		}
	}
	return !inQuote && depth['['] == 0 && depth['('] == 0 && depth['{'] == 0
}

// Package diagram repairs malformed mermaid blocks found in generated notes
// before they are handed to a renderer. The repair is best effort: each rule
// is an explicit, individually tested substitution, and a block that still
// looks unrenderable afterwards is served as raw source behind a disclosure
// instead of failing the whole view.
package diagram

import (
	"regexp"
	"strings"
	"unicode"
)

// arrowTypos maps common malformed edge operators to their valid forms.
// Order matters: longer patterns first so their prefixes do not match early.
var arrowTypos = []struct {
	re          *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`-\s+->`), "-->"},
	{regexp.MustCompile(`--\s+>`), "-->"},
	{regexp.MustCompile(`-\s+>>`), "->>"},
	{regexp.MustCompile(`==\s+>`), "==>"},
	{regexp.MustCompile(`—+>`), "-->"},  // em-dash arrows from copy-paste
	{regexp.MustCompile(`–+>`), "-->"},  // en-dash arrows
	{regexp.MustCompile(`->\s*>`), "->>"},
}

// nodeLabel matches flowchart node shapes: A[label], A(label), A{label},
// A([label]), A[[label]] and so on. Group 2 is the opening bracket run,
// group 3 the label, group 4 the closing run.
var nodeLabel = regexp.MustCompile(`(\b[\w.]+)(\(\[|\[\[|\(\(|\{\{|\[|\(|\{)([^\[\]\(\)\{\}"']+)(\]\)|\]\]|\)\)|\}\}|\]|\)|\})`)

// edgeLabel matches |label| edge annotations.
var edgeLabel = regexp.MustCompile(`\|([^|"]+)\|`)

// participantDecl matches sequence-diagram participant/actor declarations
// without an alias.
var participantDecl = regexp.MustCompile(`^(\s*)(participant|actor)\s+(.+?)\s*$`)

// Normalize applies every repair rule to a mermaid source block.
func Normalize(source string) string {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		line = normalizeArrows(line)
		line = quoteParticipants(line)
		line = quoteNodeLabels(line)
		line = quoteEdgeLabels(line)
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// normalizeArrows fixes split and unicode-dash edge operators.
func normalizeArrows(line string) string {
	for _, typo := range arrowTypos {
		line = typo.re.ReplaceAllString(line, typo.replacement)
	}
	return line
}

// needsQuoting reports whether a label would break mermaid's tokenizer:
// embedded whitespace or anything outside printable ASCII.
func needsQuoting(label string) bool {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return false
	}
	if strings.ContainsAny(trimmed, " \t") {
		return true
	}
	for _, r := range trimmed {
		if r > unicode.MaxASCII {
			return true
		}
	}
	return false
}

// quoteNodeLabels wraps unquoted flowchart node labels containing whitespace
// or non-ASCII characters in double quotes.
func quoteNodeLabels(line string) string {
	return nodeLabel.ReplaceAllStringFunc(line, func(match string) string {
		parts := nodeLabel.FindStringSubmatch(match)
		id, opening, label, closing := parts[1], parts[2], parts[3], parts[4]
		if !needsQuoting(label) {
			return match
		}
		return id + opening + `"` + strings.TrimSpace(label) + `"` + closing
	})
}

// quoteEdgeLabels wraps |label| edge annotations the same way.
func quoteEdgeLabels(line string) string {
	return edgeLabel.ReplaceAllStringFunc(line, func(match string) string {
		label := strings.TrimSuffix(strings.TrimPrefix(match, "|"), "|")
		if !needsQuoting(label) {
			return match
		}
		return `|"` + strings.TrimSpace(label) + `"|`
	})
}

// quoteParticipants rewrites `participant Ada Lovelace` as an aliased
// declaration so multi-word names survive the sequence-diagram parser.
func quoteParticipants(line string) string {
	parts := participantDecl.FindStringSubmatch(line)
	if parts == nil {
		return line
	}
	indent, keyword, name := parts[1], parts[2], parts[3]
	if strings.Contains(name, " as ") || strings.HasPrefix(name, `"`) {
		return line
	}
	if !needsQuoting(name) {
		return line
	}
	alias := participantAlias(name)
	return indent + keyword + " " + alias + ` as ` + name
}

var nonWord = regexp.MustCompile(`[^\w]+`)

func participantAlias(name string) string {
	alias := nonWord.ReplaceAllString(name, "_")
	alias = strings.Trim(alias, "_")
	if alias == "" {
		alias = "p"
	}
	return alias
}

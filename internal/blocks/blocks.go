// Package blocks splits a Markdown document into coarse movable blocks,
// moves one, and joins them back into text.
//
// Segmentation is line-oriented and heuristic; it is not a Markdown parser.
// Lines inside a fenced code region are never classified. Outside fences a
// blank line always ends the current block, and the first line of a block
// decides its Kind.
package blocks

import (
	"regexp"
	"sort"
	"strings"
)

// Kind is the structural class of a block.
type Kind string

const (
	KindHeading   Kind = "heading"
	KindList      Kind = "list"
	KindQuote     Kind = "quote"
	KindTable     Kind = "table"
	KindCode      Kind = "code"
	KindSeparator Kind = "separator"
	KindParagraph Kind = "paragraph"
	KindBlank     Kind = "blank"
)

// Separator is placed between blocks by Join.
const Separator = "\n\n"

const fence = "```"

// Block is one movable unit of a document.
type Block struct {
	Content string `json:"content"`
	Kind    Kind   `json:"kind"`
	Order   int    `json:"order"`
}

var (
	headingRe   = regexp.MustCompile(`^#{1,6}\s`)
	bulletRe    = regexp.MustCompile(`^\s*[-*+]\s`)
	orderedRe   = regexp.MustCompile(`^\s*\d+\.\s`)
	quoteRe     = regexp.MustCompile(`^>(\s|$)`)
	breakRe     = regexp.MustCompile(`^(\*{3,}|_{3,}|-{3,})$`)
	tableRowRe  = regexp.MustCompile(`^\s*\|.*\|`)
	tableRuleRe = regexp.MustCompile(`^[-:+|\s]+$`)
)

// classify returns the Kind of a single line outside a fence. Table rows
// are checked before list items, so "- |" is a table row.
func classify(line string) Kind {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return KindBlank
	case isTableRow(line, trimmed):
		return KindTable
	case breakRe.MatchString(trimmed):
		return KindSeparator
	case headingRe.MatchString(line):
		return KindHeading
	case bulletRe.MatchString(line), orderedRe.MatchString(line):
		return KindList
	case quoteRe.MatchString(line):
		return KindQuote
	}
	return KindParagraph
}

// isTableRow matches pipe-led rows, "| a | b |" rows with leading
// whitespace, and delimiter rows such as "|---|:-:|". A delimiter row must
// contain a pipe so that a bare "---" stays a thematic break.
func isTableRow(line, trimmed string) bool {
	if strings.HasPrefix(line, "|") || tableRowRe.MatchString(line) {
		return true
	}
	return strings.Contains(trimmed, "|") && tableRuleRe.MatchString(trimmed)
}

func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), fence)
}

// startsBlock applies the continuation rules for a non-blank line given the
// class of the line before it in the current block.
func startsBlock(cur, prev Kind) bool {
	switch {
	case cur == KindTable:
		return prev != KindTable
	case prev == KindTable:
		return true
	case cur == KindList:
		return prev != KindList
	case cur == KindQuote:
		return prev != KindQuote
	case cur == KindSeparator, prev == KindSeparator:
		return true
	}
	return false
}

// Segment splits text into blocks numbered 0..n-1. Whitespace-only input
// yields a single blank block holding the original text.
func Segment(text string) []Block {
	if strings.TrimSpace(text) == "" {
		return []Block{{Content: text, Kind: KindBlank, Order: 0}}
	}

	var (
		out     []Block
		cur     []string
		curKind Kind
		prev    = KindBlank
		inFence bool
	)

	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, Block{Content: strings.Join(cur, "\n"), Kind: curKind, Order: len(out)})
		cur = nil
		prev = KindBlank
	}
	start := func(line string, k Kind) {
		flush()
		cur = []string{line}
		curKind = k
		prev = k
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSuffix(raw, "\r")

		if inFence {
			cur = append(cur, raw)
			if isFence(line) {
				inFence = false
				flush()
			}
			continue
		}
		if isFence(line) {
			start(raw, KindCode)
			inFence = true
			continue
		}

		k := classify(line)
		switch {
		case k == KindBlank:
			flush()
		case len(cur) == 0, startsBlock(k, prev):
			start(raw, k)
		default:
			cur = append(cur, raw)
			prev = k
		}
	}
	// An unterminated fence is still emitted.
	flush()

	if len(out) == 0 {
		return []Block{{Content: text, Kind: KindParagraph, Order: 0}}
	}
	return out
}

// Reorder moves the block at from so that it ends up at index to and
// renumbers Order contiguously. Out-of-range or equal indices return the
// input unchanged.
func Reorder(blocks []Block, from, to int) []Block {
	n := len(blocks)
	if from == to || from < 0 || from >= n || to < 0 || to >= n {
		return blocks
	}
	out := make([]Block, 0, n)
	moved := blocks[from]
	for i, b := range blocks {
		if i != from {
			out = append(out, b)
		}
	}
	out = append(out[:to], append([]Block{moved}, out[to:]...)...)
	for i := range out {
		out[i].Order = i
	}
	return out
}

// Join concatenates block contents in ascending Order, one blank line apart.
func Join(blocks []Block) string {
	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	parts := make([]string, len(sorted))
	for i, b := range sorted {
		parts[i] = b.Content
	}
	return strings.Join(parts, Separator)
}

// Move segments text, moves one block and joins the result. It reports
// false, returning text untouched, when the move is a no-op. A trailing
// newline on the input is kept.
func Move(text string, from, to int) (string, bool) {
	segs := Segment(text)
	if from == to || from < 0 || from >= len(segs) || to < 0 || to >= len(segs) {
		return text, false
	}
	out := Join(Reorder(segs, from, to))
	if strings.HasSuffix(text, "\n") && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, true
}

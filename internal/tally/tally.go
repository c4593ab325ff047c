// Package tally counts answers of multi-select and free-text questions.
package tally

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Item is a token and how many times it was selected.
type Item struct {
	Token string
	Count int
}

// Counts is a frequency table ordered by count, most frequent first.
// Tokens with equal counts keep the order in which they were first seen.
type Counts struct {
	items []Item
	index map[string]int
}

// Split breaks a comma-joined multi-select cell into trimmed tokens.
func Split(cell string) []string {
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Count tallies the tokens of every cell. Empty cells contribute nothing.
func Count(cells []string) Counts {
	var tokens []string
	for _, c := range cells {
		tokens = append(tokens, Split(c)...)
	}
	return CountTokens(tokens)
}

// CountTokens tallies already split tokens.
func CountTokens(tokens []string) Counts {
	c := Counts{index: make(map[string]int)}
	for _, tok := range tokens {
		if i, ok := c.index[tok]; ok {
			c.items[i].Count++
			continue
		}
		c.index[tok] = len(c.items)
		c.items = append(c.items, Item{Token: tok, Count: 1})
	}
	sort.SliceStable(c.items, func(i, j int) bool { return c.items[i].Count > c.items[j].Count })
	for i, it := range c.items {
		c.index[it.Token] = i
	}
	return c
}

// Len returns the number of distinct tokens.
func (c Counts) Len() int { return len(c.items) }

// Total returns the number of tokens counted.
func (c Counts) Total() int {
	n := 0
	for _, it := range c.items {
		n += it.Count
	}
	return n
}

// Get returns the count for a token, 0 when it never appeared.
func (c Counts) Get(token string) int {
	if i, ok := c.index[token]; ok {
		return c.items[i].Count
	}
	return 0
}

// Items returns a copy of the table.
func (c Counts) Items() []Item {
	return append([]Item(nil), c.items...)
}

// Top returns at most n items. n <= 0 returns everything.
func (c Counts) Top(n int) []Item {
	if n <= 0 || n > len(c.items) {
		n = len(c.items)
	}
	return append([]Item(nil), c.items[:n]...)
}

// Words tallies whitespace and punctuation separated words across free-text
// answers. Single-rune ASCII fragments are dropped.
func Words(texts []string) Counts {
	var tokens []string
	for _, t := range texts {
		for _, w := range strings.FieldsFunc(t, isWordBreak) {
			if utf8.RuneCountInString(w) == 1 && w[0] < utf8.RuneSelf {
				continue
			}
			tokens = append(tokens, strings.ToLower(w))
		}
	}
	return CountTokens(tokens)
}

func isWordBreak(r rune) bool {
	switch r {
	case '、', '。', '「', '」', '（', '）', '・', '！', '？', '：', '　':
		return true
	}
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

// Normalize flattens line breaks so a free-text answer fits on one line.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.NewReplacer("\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(text)
}

// Preview cuts text to at most limit runes, appending "..." when cut.
func Preview(text string, limit int) string {
	r := []rune(text)
	if limit <= 0 || len(r) <= limit {
		return text
	}
	return string(r[:limit]) + "..."
}

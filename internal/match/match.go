// Package match holds the structured results of a grammar check and the
// utilities that consume them.
package match

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Match is one flagged span in a checked text. Offset and ErrorLength are
// rune positions into the text that was sent to the engine.
type Match struct {
	RuleID          string   `json:"ruleId"`
	Message         string   `json:"message"`
	Replacements    []string `json:"replacements"`
	OffsetInContext int      `json:"offsetInContext"`
	Context         string   `json:"context"`
	Offset          int      `json:"offset"`
	ErrorLength     int      `json:"errorLength"`
	Category        string   `json:"category"`
	RuleIssueType   string   `json:"ruleIssueType"`
	Sentence        string   `json:"sentence"`
}

// wireMatch mirrors one element of the engine's "matches" array. Fields the
// engine omits (or adds in newer versions) decode to zero values instead of
// failing the whole response.
type wireMatch struct {
	Message      string `json:"message"`
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	Sentence     string `json:"sentence"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
	Context struct {
		Text   string `json:"text"`
		Offset int    `json:"offset"`
		Length int    `json:"length"`
	} `json:"context"`
	Rule struct {
		ID        string `json:"id"`
		IssueType string `json:"issueType"`
		Category  struct {
			ID string `json:"id"`
		} `json:"category"`
	} `json:"rule"`
}

type wireResponse struct {
	Matches []wireMatch `json:"matches"`
}

// ParseResponse decodes the engine's check response for the given text.
// text must be the exact string that was checked: the engine counts
// astral-plane characters as two positions, so offsets are rebased onto
// rune positions here.
func ParseResponse(body []byte, text string) ([]Match, error) {
	var resp wireResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding check response: %w", err)
	}

	wide := widePositions(text)
	matches := make([]Match, 0, len(resp.Matches))
	for _, wm := range resp.Matches {
		m := Match{
			RuleID:          wm.Rule.ID,
			Message:         wm.Message,
			OffsetInContext: wm.Context.Offset,
			Context:         wm.Context.Text,
			Offset:          wm.Offset,
			ErrorLength:     wm.Length,
			Category:        wm.Rule.Category.ID,
			RuleIssueType:   wm.Rule.IssueType,
			Sentence:        wm.Sentence,
		}
		for _, r := range wm.Replacements {
			m.Replacements = append(m.Replacements, r.Value)
		}
		for _, pos := range wide {
			if pos < m.Offset {
				m.Offset--
			}
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// widePositions returns the engine-side positions of runes that occupy two
// engine positions (4-byte UTF-8, i.e. outside the BMP).
func widePositions(text string) []int {
	var positions []int
	i := 0
	for _, r := range text {
		if utf8.RuneLen(r) == 4 {
			positions = append(positions, i)
			i++
		}
		i++
	}
	return positions
}

// MatchedText returns the flagged span as it appears in the context snippet.
func (m Match) MatchedText() string {
	runes := []rune(m.Context)
	start, end := m.OffsetInContext, m.OffsetInContext+m.ErrorLength
	if start < 0 || end > len(runes) || start > end {
		return ""
	}
	return string(runes[start:end])
}

// String renders the match for terminal display with a caret line under the
// flagged span of the context snippet.
func (m Match) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Offset %d, length %d, Rule ID: %s", m.Offset, m.ErrorLength, m.RuleID)
	if m.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", m.Message)
	}
	if len(m.Replacements) > 0 {
		fmt.Fprintf(&b, "\nSuggestion: %s", strings.Join(m.Replacements, "; "))
	}
	fmt.Fprintf(&b, "\n%s\n%s%s",
		m.Context,
		strings.Repeat(" ", m.OffsetInContext),
		strings.Repeat("^", m.ErrorLength))
	return b.String()
}

// LineColumn converts the match offset into a 1-based line and column within
// the original checked text.
func (m Match) LineColumn(original string) (line, col int) {
	runes := []rune(original)
	offset := m.Offset
	if offset > len(runes) {
		offset = len(runes)
	}
	line = 1
	lastNL := -1
	for i := 0; i < offset; i++ {
		if runes[i] == '\n' {
			line++
			lastNL = i
		}
	}
	return line, offset - lastNL
}

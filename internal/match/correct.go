package match

import "sort"

// Status classifies the outcome of a check.
type Status int

const (
	// StatusCorrect means no issues were found.
	StatusCorrect Status = iota
	// StatusFaulty means at least one issue carries a replacement.
	StatusFaulty
	// StatusGarbage means issues were found but none is fixable.
	StatusGarbage
)

func (s Status) String() string {
	switch s {
	case StatusCorrect:
		return "correct"
	case StatusFaulty:
		return "faulty"
	default:
		return "garbage"
	}
}

// Classify reduces a match list to a Status.
func Classify(matches []Match) Status {
	if len(matches) == 0 {
		return StatusCorrect
	}
	for _, m := range matches {
		if len(m.Replacements) > 0 {
			return StatusFaulty
		}
	}
	return StatusGarbage
}

// Correct applies matches to text and returns the corrected string. Only
// matches carrying at least one replacement are applied, each replacing its
// [Offset, Offset+ErrorLength) span with the first replacement. Matches are
// applied in descending offset order, so edits later in the text never shift
// the positions of edits still to come. Overlapping or out-of-range matches
// are not defended against beyond skipping spans that fall outside the text:
// feeding inconsistent matches yields inconsistent output.
func Correct(text string, matches []Match) string {
	applicable := make([]Match, 0, len(matches))
	for _, m := range matches {
		if len(m.Replacements) > 0 {
			applicable = append(applicable, m)
		}
	}
	if len(applicable) == 0 {
		return text
	}

	sort.SliceStable(applicable, func(i, j int) bool {
		return applicable[i].Offset > applicable[j].Offset
	})

	runes := []rune(text)
	for _, m := range applicable {
		start, end := m.Offset, m.Offset+m.ErrorLength
		if start < 0 || end > len(runes) || start > end {
			continue
		}
		repl := []rune(m.Replacements[0])
		updated := make([]rune, 0, len(runes)-(end-start)+len(repl))
		updated = append(updated, runes[:start]...)
		updated = append(updated, repl...)
		updated = append(updated, runes[end:]...)
		runes = updated
	}
	return string(runes)
}

package check

import "unicode"

// fragment is one piece of a split text, with its rune offset in the whole.
type fragment struct {
	text   string
	offset int
}

// splitText breaks text into fragments of at most max runes, preferring
// paragraph breaks, then sentence ends, then any whitespace as cut points.
// Offsets are rune offsets into the original text.
func splitText(text string, max int) []fragment {
	runes := []rune(text)
	if max <= 0 || len(runes) <= max {
		return []fragment{{text: text, offset: 0}}
	}

	var frags []fragment
	start := 0
	for start < len(runes) {
		if len(runes)-start <= max {
			frags = append(frags, fragment{text: string(runes[start:]), offset: start})
			break
		}
		cut := cutPoint(runes, start, start+max)
		frags = append(frags, fragment{text: string(runes[start:cut]), offset: start})
		start = cut
	}
	return frags
}

// cutPoint picks the best split position in (start, end]. The fragment
// becomes runes[start:cut]; the next fragment starts at cut.
func cutPoint(runes []rune, start, end int) int {
	// Paragraph break: cut right after a blank line.
	for i := end; i > start+1; i-- {
		if runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	// Sentence end: terminal punctuation followed by whitespace.
	for i := end; i > start+1; i-- {
		if isSpace(runes[i-1]) && sentenceEnd(runes[i-2]) {
			return i
		}
	}
	// Any whitespace, so words stay whole.
	for i := end; i > start; i-- {
		if isSpace(runes[i-1]) {
			return i
		}
	}
	// One unbroken run longer than the limit; hard cut.
	return end
}

func isSpace(r rune) bool { return unicode.IsSpace(r) }

func sentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}

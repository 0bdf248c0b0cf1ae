package session

import (
	"fmt"
	"strings"

	"github.com/kovanov/redline/internal/check"
)

// normalizeTag maps a user-supplied language tag onto the canonical form the
// engine advertises: "en-us" becomes "en-US", bare codes like "en" pass
// through when supported. Unknown tags are rejected.
func normalizeTag(tag string, langs []check.Language) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(tag))
	if lower == "" {
		return "", fmt.Errorf("empty language tag")
	}
	// "auto" asks the engine to detect the language per request.
	if lower == "auto" {
		return "auto", nil
	}

	for _, l := range langs {
		if strings.ToLower(l.LongCode) == lower {
			return l.LongCode, nil
		}
	}
	for _, l := range langs {
		if strings.ToLower(l.Code) == lower {
			return l.Code, nil
		}
	}
	return "", fmt.Errorf("language %q is not supported by the engine", tag)
}

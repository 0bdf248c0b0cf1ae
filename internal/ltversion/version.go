// Package ltversion models LanguageTool release versions.
//
// Engine versions are short dotted numbers ("5.8", "6.4") plus snapshot
// builds tagged "-SNAPSHOT". Comparing them as strings is wrong ("5.10"
// sorts before "5.8"), so versions are parsed into integer components and
// compared numerically.
package ltversion

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed engine version. Snapshot builds order before the
// release carrying the same numeric components.
type Version struct {
	Parts    []int
	Snapshot bool
}

// Parse parses strings like "5.8", "6.4.1" or "6.7-SNAPSHOT".
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, fmt.Errorf("empty version")
	}

	var v Version
	if rest, ok := strings.CutSuffix(raw, "-SNAPSHOT"); ok {
		v.Snapshot = true
		raw = rest
	}

	for _, part := range strings.Split(raw, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		v.Parts = append(v.Parts, n)
	}
	return v, nil
}

// MustParse is Parse for known-good literals; it panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or 1 ordering v against o by numeric components.
// Missing trailing components count as zero, so "5.8" == "5.8.0".
func (v Version) Compare(o Version) int {
	n := len(v.Parts)
	if len(o.Parts) > n {
		n = len(o.Parts)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.Parts) {
			a = v.Parts[i]
		}
		if i < len(o.Parts) {
			b = o.Parts[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	switch {
	case v.Snapshot == o.Snapshot:
		return 0
	case v.Snapshot:
		return -1
	default:
		return 1
	}
}

// Less reports whether v orders before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

func (v Version) String() string {
	parts := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		parts[i] = strconv.Itoa(p)
	}
	s := strings.Join(parts, ".")
	if v.Snapshot {
		s += "-SNAPSHOT"
	}
	return s
}

// IsZero reports whether v is the zero Version.
func (v Version) IsZero() bool { return len(v.Parts) == 0 && !v.Snapshot }

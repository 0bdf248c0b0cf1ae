package engine

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/kovanov/redline/internal/ltversion"
)

// Older engine releases run on Java 8; everything from 6.6 on wants 17.
var javaCutoff = ltversion.MustParse("6.6")

var (
	javaVersionRe = regexp.MustCompile(`(?m)^(?:java|openjdk) version "(\d+)(?:\.(\d+)\.[^"]*)?"`)
	// Later JDKs drop the quotes and the "version" word varies.
	javaVersionReUpdated = regexp.MustCompile(`(?m)^(?:java|openjdk) (?:version )?(\d+)\.(\d+)`)
)

// ResolveJava returns the java executable to launch the engine with. An
// explicit path is used as-is; otherwise PATH is searched.
func ResolveJava(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	found, err := exec.LookPath("java")
	if err != nil {
		return "", fmt.Errorf("no java installation found on PATH; the engine requires a JRE: %w", err)
	}
	return found, nil
}

// VerifyJava runs `java -version` and checks the major version against what
// the requested engine version needs.
func VerifyJava(ctx context.Context, javaPath string, engineVersion ltversion.Version) error {
	out, err := exec.CommandContext(ctx, javaPath, "-version").CombinedOutput()
	if err != nil {
		return fmt.Errorf("running %s -version: %w", javaPath, err)
	}

	major, minor, err := parseJavaVersion(string(out))
	if err != nil {
		return err
	}

	required := RequiredJavaMajor(engineVersion)
	// Pre-9 JDKs report themselves as 1.x.
	effective := major
	if major == 1 {
		effective = minor
	}
	if effective < required {
		return fmt.Errorf("detected java %d.%d, but engine %s requires Java >= %d",
			major, minor, engineVersion, required)
	}
	return nil
}

// RequiredJavaMajor returns the minimum Java major version for an engine
// version. The zero Version means "latest" and gets the modern requirement.
func RequiredJavaMajor(v ltversion.Version) int {
	if v.IsZero() || v.Snapshot || v.Compare(javaCutoff) >= 0 {
		return 17
	}
	return 8
}

func parseJavaVersion(text string) (major, minor int, err error) {
	m := javaVersionRe.FindStringSubmatch(text)
	if m == nil {
		m = javaVersionReUpdated.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, 0, fmt.Errorf("could not parse java version from %q", text)
	}
	major, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minor, _ = strconv.Atoi(m[2])
	}
	return major, minor, nil
}

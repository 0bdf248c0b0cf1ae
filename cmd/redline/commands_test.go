package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kovanov/redline/internal/match"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"UPPERCASE_SENTENCE_START", []string{"UPPERCASE_SENTENCE_START"}},
		{"A,B,C", []string{"A", "B", "C"}},
		{" A , B ", []string{"A", "B"}},
		{"A,,B,", []string{"A", "B"}},
	}
	for _, tt := range tests {
		got := splitList(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestValidateCheckFlags(t *testing.T) {
	if err := validateCheckFlags(false, nil, nil); err != nil {
		t.Errorf("unexpected error without --enabled-only: %v", err)
	}
	if err := validateCheckFlags(true, []string{"RULE_A"}, nil); err != nil {
		t.Errorf("unexpected error with --enable: %v", err)
	}

	err := validateCheckFlags(true, nil, nil)
	if err == nil {
		t.Error("expected error for --enabled-only without --enable")
	} else if !strings.Contains(err.Error(), "requires --enable") {
		t.Errorf("error = %q, want it to mention 'requires --enable'", err.Error())
	}

	err = validateCheckFlags(true, []string{"RULE_A"}, []string{"RULE_B"})
	if err == nil {
		t.Error("expected error for --enabled-only with --disable")
	} else if !strings.Contains(err.Error(), "conflicts with --disable") {
		t.Errorf("error = %q, want it to mention 'conflicts with --disable'", err.Error())
	}
}

func TestFormatMatch(t *testing.T) {
	text := "First line.\nI saw teh cat."
	m := match.Match{
		RuleID:       "MORFOLOGIK_RULE_EN_US",
		Message:      "Possible spelling mistake found.",
		Replacements: []string{"the", "ten"},
		Offset:       18, // "teh" on line 2
		ErrorLength:  3,
	}

	got := formatMatch("letter.txt", text, m)
	want := "letter.txt:2:7: MORFOLOGIK_RULE_EN_US: Possible spelling mistake found. [Suggestions: the, ten]"
	if got != want {
		t.Errorf("formatMatch = %q, want %q", got, want)
	}
}

func TestFormatMatch_NoSuggestions(t *testing.T) {
	m := match.Match{
		RuleID:      "SOME_STYLE_RULE",
		Message:     "Consider rephrasing.",
		Offset:      0,
		ErrorLength: 4,
	}

	got := formatMatch("<stdin>", "Some text.", m)
	if strings.Contains(got, "Suggestions") {
		t.Errorf("formatMatch without replacements should not print suggestions, got %q", got)
	}
	if !strings.HasPrefix(got, "<stdin>:1:1: SOME_STYLE_RULE:") {
		t.Errorf("unexpected prefix: %q", got)
	}
}

func TestFormatMatch_CapsSuggestions(t *testing.T) {
	m := match.Match{
		RuleID:       "R",
		Message:      "m",
		Replacements: []string{"a", "b", "c", "d", "e", "f", "g"},
		Offset:       0,
		ErrorLength:  1,
	}

	got := formatMatch("f", "x", m)
	if strings.Contains(got, "f, g") {
		t.Errorf("expected suggestion list capped at %d entries, got %q", maxSuggestions, got)
	}
	if !strings.Contains(got, "a, b, c, d, e") {
		t.Errorf("expected first %d suggestions, got %q", maxSuggestions, got)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errMatchesFound, 2},
		{errors.New("boom"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRemoteURL(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"localhost", 8081, "localhost:8081"},
		{"http://localhost/", 8081, "http://localhost:8081"},
		{"https://api.languagetool.org", 0, "https://api.languagetool.org"},
	}
	for _, tt := range tests {
		if got := remoteURL(tt.host, tt.port); got != tt.want {
			t.Errorf("remoteURL(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestReadInput_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("hello world\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readInput(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello world\n" {
		t.Errorf("readInput = %q", got)
	}
}

func TestReadInput_HTMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	html := `<html><head><title>skip</title></head><body><p>keep me</p></body></html>`
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readInput(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "keep me") {
		t.Errorf("extracted text missing body content: %q", got)
	}
	if strings.Contains(got, "<p>") {
		t.Errorf("extracted text still contains markup: %q", got)
	}
}

func TestReadInput_MissingFile(t *testing.T) {
	if _, err := readInput(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDisplayName(t *testing.T) {
	if got := displayName("-"); got != "<stdin>" {
		t.Errorf("displayName(-) = %q", got)
	}
	if got := displayName("doc.txt"); got != "doc.txt" {
		t.Errorf("displayName(doc.txt) = %q", got)
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := pidFilePath(t.TempDir())

	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after removePIDFile")
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestCheckCommand_FlagValidation(t *testing.T) {
	defer rootCmd.SetArgs(nil)
	defer checkCmd.Flags().Set("enabled-only", "false")

	rootCmd.SetArgs([]string{"check", "--enabled-only", "somefile.txt"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for --enabled-only without --enable")
	}
	if !strings.Contains(err.Error(), "requires --enable") {
		t.Errorf("error = %q, want it to mention 'requires --enable'", err.Error())
	}
}

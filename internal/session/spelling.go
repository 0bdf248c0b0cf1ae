package session

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// registerSpellings appends words missing from the engine's custom word list
// and returns the ones actually added, so Close can take them out again.
func registerSpellings(path string, words []string) ([]string, error) {
	existing, err := readWordList(path)
	if err != nil {
		return nil, err
	}

	var added []string
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || existing[w] {
			continue
		}
		added = append(added, w)
		existing[w] = true
	}
	if len(added) == 0 {
		return nil, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	for _, w := range added {
		if _, err := fmt.Fprintln(f, w); err != nil {
			f.Close()
			return nil, err
		}
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return added, nil
}

// unregisterSpellings rewrites the word list without the given words.
func unregisterSpellings(path string, words []string) error {
	remove := make(map[string]bool, len(words))
	for _, w := range words {
		remove[w] = true
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var kept []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if !remove[strings.TrimSpace(sc.Text())] {
			kept = append(kept, sc.Text())
		}
	}
	scanErr := sc.Err()
	f.Close()
	if scanErr != nil {
		return scanErr
	}

	out := strings.Join(kept, "\n")
	if out != "" {
		out += "\n"
	}
	return os.WriteFile(path, []byte(out), 0o644)
}

func readWordList(path string) (map[string]bool, error) {
	words := map[string]bool{}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return words, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" {
			words[w] = true
		}
	}
	return words, sc.Err()
}

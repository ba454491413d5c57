// Package batch reads phrase lists for batch translation.
package batch

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// PhraseEntry is one French phrase to translate, optionally with the
// expected translation for comparison.
type PhraseEntry struct {
	Phrase   string
	Expected string
}

// ReadBatchFile reads phrases from a file. Supported line formats:
//   - French phrase only: "bonjour"
//   - With expected translation: "bonjour = akwaba"
//
// Blank lines and lines starting with '#' are skipped, as are lines whose
// phrase part is empty.
func ReadBatchFile(filename string) ([]PhraseEntry, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer f.Close()

	var entries []PhraseEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		phrase, expected, _ := strings.Cut(line, "=")
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		entries = append(entries, PhraseEntry{
			Phrase:   phrase,
			Expected: strings.TrimSpace(expected),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	return entries, nil
}

package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codeberg.org/snonux/kumajala/internal/language"
)

// Pair is one source phrase with its translation into a target language.
type Pair struct {
	Source string
	Target string
}

// Corpus maps source phrases to their translations per target language.
type Corpus struct {
	Source  string
	Phrases map[string]map[string]string
}

// MalformedCorpusError is returned when a corpus file cannot be interpreted.
type MalformedCorpusError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedCorpusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed corpus %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed corpus %s: %s", e.Path, e.Reason)
}

func (e *MalformedCorpusError) Unwrap() error {
	return e.Err
}

// New returns an empty corpus for the source language.
func New() *Corpus {
	return &Corpus{Source: language.Source, Phrases: make(map[string]map[string]string)}
}

// Set records the translation of phrase into lang, replacing any previous one.
func (c *Corpus) Set(phrase, lang, translation string) {
	phrase = strings.TrimSpace(phrase)
	translation = strings.TrimSpace(translation)
	if phrase == "" || translation == "" {
		return
	}
	entry, ok := c.Phrases[phrase]
	if !ok {
		entry = make(map[string]string)
		c.Phrases[phrase] = entry
	}
	entry[lang] = translation
}

// Get returns the translation of phrase into lang.
func (c *Corpus) Get(phrase, lang string) (string, bool) {
	t, ok := c.Phrases[phrase][lang]
	return t, ok
}

// Sorted returns the source phrases in lexical order.
func (c *Corpus) Sorted() []string {
	phrases := make([]string, 0, len(c.Phrases))
	for p := range c.Phrases {
		phrases = append(phrases, p)
	}
	sort.Strings(phrases)
	return phrases
}

// Pairs returns every phrase translated into lang, ordered by source phrase.
func (c *Corpus) Pairs(lang string) []Pair {
	var pairs []Pair
	for _, phrase := range c.Sorted() {
		if t, ok := c.Phrases[phrase][lang]; ok && t != "" {
			pairs = append(pairs, Pair{Source: phrase, Target: t})
		}
	}
	return pairs
}

// Missing returns the phrases that have no translation into lang yet.
func (c *Corpus) Missing(lang string) []string {
	var missing []string
	for _, phrase := range c.Sorted() {
		if t := c.Phrases[phrase][lang]; t == "" {
			missing = append(missing, phrase)
		}
	}
	return missing
}

// Len returns the number of source phrases.
func (c *Corpus) Len() int {
	return len(c.Phrases)
}

// Load reads a corpus, choosing the format by file extension: .parquet for
// flat pair tables, anything else as the nested JSON layout.
func Load(path string) (*Corpus, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return LoadParquet(path)
	}
	return LoadJSON(path)
}

// Save writes the corpus in the format implied by the file extension.
func Save(path string, c *Corpus) error {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return SaveParquet(path, c)
	}
	return SaveJSON(path, c)
}

// LoadJSON reads the nested layout {"fr": {phrase: {lang: translation}}}.
func LoadJSON(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}

	var raw map[string]map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &MalformedCorpusError{Path: path, Reason: "invalid JSON layout", Err: err}
	}
	phrases, ok := raw[language.Source]
	if !ok {
		return nil, &MalformedCorpusError{Path: path, Reason: fmt.Sprintf("missing top-level %q key", language.Source)}
	}

	c := New()
	for phrase, translations := range phrases {
		for lang, t := range translations {
			c.Set(phrase, lang, t)
		}
	}
	return c, nil
}

// SaveJSON writes the nested layout with indentation.
func SaveJSON(path string, c *Corpus) error {
	raw := map[string]map[string]map[string]string{c.Source: c.Phrases}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write corpus: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

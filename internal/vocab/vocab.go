package vocab

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Reserved token ids. They occupy the first four slots of every vocabulary.
const (
	PadID     = 0
	StartID   = 1
	EndID     = 2
	UnknownID = 3
)

// Reserved token strings, indexed by id.
const (
	PadToken     = "<PAD>"
	StartToken   = "<START>"
	EndToken     = "<END>"
	UnknownToken = "<UNK>"
)

var reserved = []string{PadToken, StartToken, EndToken, UnknownToken}

// Word runs are letters, digits, marks and underscores; every other non-space
// rune is its own token.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]+|[^\p{L}\p{N}\p{M}_\s]`)

// A space is dropped before these when decoding.
var gluedPunctuation = regexp.MustCompile(`\s+([.,!?;:])`)

// Vocabulary is a bidirectional token/id mapping for one language. It is
// immutable once built or loaded and safe for concurrent reads.
type Vocabulary struct {
	Language string

	tokens []string
	ids    map[string]int
	counts map[string]int
}

func newVocabulary(lang string) *Vocabulary {
	v := &Vocabulary{
		Language: lang,
		ids:      make(map[string]int),
		counts:   make(map[string]int),
	}
	for id, tok := range reserved {
		v.tokens = append(v.tokens, tok)
		v.ids[tok] = id
	}
	return v
}

// Tokenize normalises text (NFC, lower case, trimmed) and splits it into word
// and punctuation tokens.
func Tokenize(text string) []string {
	text = norm.NFC.String(text)
	text = cases.Lower(language.Und).String(text)
	return tokenPattern.FindAllString(strings.TrimSpace(text), -1)
}

// Build counts tokens over corpus and assigns ids after the reserved ones in
// descending frequency, breaking ties by first appearance. Tokens seen fewer
// than minFrequency times are left out.
func Build(lang string, corpus []string, minFrequency int) *Vocabulary {
	v := newVocabulary(lang)

	var order []string
	firstSeen := make(map[string]int)
	for _, text := range corpus {
		for _, tok := range Tokenize(text) {
			if _, ok := firstSeen[tok]; !ok {
				firstSeen[tok] = len(order)
				order = append(order, tok)
			}
			v.counts[tok]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return v.counts[order[i]] > v.counts[order[j]]
	})

	for _, tok := range order {
		if v.counts[tok] < minFrequency {
			continue
		}
		if _, exists := v.ids[tok]; exists {
			continue
		}
		v.ids[tok] = len(v.tokens)
		v.tokens = append(v.tokens, tok)
	}
	return v
}

// Size returns the number of ids, reserved ones included.
func (v *Vocabulary) Size() int {
	return len(v.tokens)
}

// Token returns the token for id, or the unknown token when id is out of range.
func (v *Vocabulary) Token(id int) string {
	if id < 0 || id >= len(v.tokens) {
		return UnknownToken
	}
	return v.tokens[id]
}

// ID returns the id of token and whether it is known.
func (v *Vocabulary) ID(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Count returns how often token occurred in the corpus the vocabulary was
// built from.
func (v *Vocabulary) Count(token string) int {
	return v.counts[token]
}

// Encode maps text to ids. Unknown tokens become UnknownID; with addBoundary
// the sequence is wrapped in StartID and EndID.
func (v *Vocabulary) Encode(text string, addBoundary bool) []int {
	toks := Tokenize(text)
	ids := make([]int, 0, len(toks)+2)
	if addBoundary {
		ids = append(ids, StartID)
	}
	for _, tok := range toks {
		id, ok := v.ids[tok]
		if !ok {
			id = UnknownID
		}
		ids = append(ids, id)
	}
	if addBoundary {
		ids = append(ids, EndID)
	}
	return ids
}

// Decode maps ids back to text, joining tokens with single spaces and gluing
// trailing punctuation to the preceding word. With skipReserved the four
// reserved tokens are dropped.
func (v *Vocabulary) Decode(ids []int, skipReserved bool) string {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		tok := v.Token(id)
		if skipReserved && IsReserved(tok) {
			continue
		}
		words = append(words, tok)
	}
	if len(words) == 0 {
		return ""
	}
	return gluedPunctuation.ReplaceAllString(strings.Join(words, " "), "$1")
}

// IsReserved reports whether tok is one of the reserved tokens.
func IsReserved(tok string) bool {
	for _, r := range reserved {
		if tok == r {
			return true
		}
	}
	return false
}

// Fingerprint is a SHA-256 digest of the ordered id to token table. Two
// vocabularies with the same fingerprint encode and decode identically.
func (v *Vocabulary) Fingerprint() string {
	h := sha256.New()
	for id, tok := range v.tokens {
		fmt.Fprintf(h, "%d\t%s\n", id, tok)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// file is the on-disk layout of a vocabulary.
type file struct {
	Language   string            `json:"language"`
	Word2Idx   map[string]int    `json:"word2idx"`
	Idx2Word   map[string]string `json:"idx2word"`
	WordCounts map[string]int    `json:"word_counts"`
}

// Save writes the vocabulary as indented JSON.
func (v *Vocabulary) Save(path string) error {
	f := file{
		Language:   v.Language,
		Word2Idx:   v.ids,
		Idx2Word:   make(map[string]string, len(v.tokens)),
		WordCounts: v.counts,
	}
	for id, tok := range v.tokens {
		f.Idx2Word[strconv.Itoa(id)] = tok
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode vocabulary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write vocabulary: %w", err)
	}
	return nil
}

// Load reads a vocabulary written by Save. Ids must be dense and the reserved
// tokens must sit at their fixed ids.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary %s: %w", path, err)
	}

	v := &Vocabulary{
		Language: f.Language,
		tokens:   make([]string, len(f.Idx2Word)),
		ids:      make(map[string]int, len(f.Idx2Word)),
		counts:   f.WordCounts,
	}
	if v.counts == nil {
		v.counts = make(map[string]int)
	}
	for key, tok := range f.Idx2Word {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 || id >= len(v.tokens) {
			return nil, fmt.Errorf("vocabulary %s: invalid id %q", path, key)
		}
		v.tokens[id] = tok
		v.ids[tok] = id
	}
	for id, tok := range reserved {
		if len(v.tokens) <= id || v.tokens[id] != tok {
			return nil, fmt.Errorf("vocabulary %s: reserved token %s not at id %d", path, tok, id)
		}
	}
	for tok, id := range f.Word2Idx {
		if v.Token(id) != tok {
			return nil, fmt.Errorf("vocabulary %s: word2idx and idx2word disagree on %q", path, tok)
		}
	}
	return v, nil
}

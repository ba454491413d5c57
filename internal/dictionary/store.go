// Package dictionary stores exact phrase translations curated by humans or
// learnt from the generative tier. Keys are case-folded French phrases.
package dictionary

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"codeberg.org/snonux/kumajala/internal/corpus"
	"codeberg.org/snonux/kumajala/internal/language"
)

// Store looks up and records translations of source phrases.
type Store interface {
	Lookup(ctx context.Context, text, lang string) (string, bool, error)
	Upsert(ctx context.Context, text, lang, translation string) error
	Close() error
}

// Open picks a store by path: "" gives an in-memory store, a .json file a
// JSONStore and anything else an SQLite database.
func Open(path string) (Store, error) {
	switch {
	case path == "":
		return NewMemoryStore(), nil
	case strings.EqualFold(filepath.Ext(path), ".json"):
		return NewJSONStore(path), nil
	default:
		return OpenSQLite(path)
	}
}

// Key returns the normalised form phrases are stored under.
func Key(text string) string {
	return language.Fold(text)
}

// DefaultPhrases is the seed table: phrase -> language -> translation.
var DefaultPhrases = map[string]map[string]string{
	"bonjour":             {language.Bete: "Akwaba", language.Baoule: "Mo ho", language.Moore: "Ne y windga", language.Agni: "Agni oh"},
	"comment allez-vous?": {language.Bete: "Bi ye né?", language.Baoule: "Wo ho tè n?", language.Moore: "Fo laafi?", language.Agni: "Aka kye?"},
	"merci":               {language.Bete: "Akpé", language.Baoule: "Mo", language.Moore: "Barika", language.Agni: "Akpé"},
	"au revoir":           {language.Bete: "Kan na", language.Baoule: "Kan na", language.Moore: "Nan kã pãalem", language.Agni: "Aka na"},
	"oui":                 {language.Bete: "Yoo", language.Baoule: "Yoo", language.Moore: "Yãa", language.Agni: "Aoo"},
	"non":                 {language.Bete: "Kou", language.Baoule: "Kou", language.Moore: "Ayi", language.Agni: "N'an"},
	"bonne nuit":          {language.Bete: "Dè wèlè", language.Baoule: "Dè wèlè", language.Moore: "Sẽn-doogo", language.Agni: "Anwielé"},
	"je m'appelle":        {language.Bete: "Man yi tɔ", language.Baoule: "Man yi tɔ", language.Moore: "Ma yiire", language.Agni: "Mina yɛ"},
	"où est":              {language.Bete: "Kpá nyɛ", language.Baoule: "Kpá nyɛ", language.Moore: "Fo bee", language.Agni: "Wan ye?"},
	"combien":             {language.Bete: "Kpé nyɛ", language.Baoule: "Kpé nyɛ", language.Moore: "Kpé nyɛ", language.Agni: "Kye o?"},
	"s'il vous plaît":     {language.Bete: "Akpé o", language.Baoule: "Akpé o", language.Moore: "Tõnd pa", language.Agni: "Kpaa"},
	"excusez-moi":         {language.Bete: "Pardon", language.Baoule: "Pardon", language.Moore: "Tõnd wii", language.Agni: "Pardon"},
	"ça va":               {language.Bete: "Bi dè", language.Baoule: "Wo dè", language.Moore: "A laafi", language.Agni: "Aka ya?"},
	"boire":               {language.Bete: "Nyɛ", language.Baoule: "Nyɛ", language.Moore: "Nyu", language.Agni: "Nyu"},
	"manger":              {language.Bete: "Dyi", language.Baoule: "Dyi", language.Moore: "Di", language.Agni: "Di"},
	"dormir":              {language.Bete: "Dè", language.Baoule: "Dè", language.Moore: "Sẽn", language.Agni: "Dè"},
	"maison":              {language.Bete: "Kpè", language.Baoule: "Kpè", language.Moore: "Yiri", language.Agni: "Aso"},
	"eau":                 {language.Bete: "Nyɛ", language.Baoule: "Nyɛ", language.Moore: "Koom", language.Agni: "Nsu"},
	"argent":              {language.Bete: "Kpɛ", language.Baoule: "Kpɛ", language.Moore: "Galaga", language.Agni: "Sika"},
	"travail":             {language.Bete: "Wɔ", language.Baoule: "Wɔ", language.Moore: "Tuma", language.Agni: "Adwuma"},
}

// Seed adds the default phrases that the store does not know yet and returns
// how many were added. Existing translations are left alone.
func Seed(ctx context.Context, s Store) (int, error) {
	c := corpus.New()
	for phrase, translations := range DefaultPhrases {
		for lang, t := range translations {
			c.Set(phrase, lang, t)
		}
	}

	added := 0
	for _, phrase := range c.Sorted() {
		for _, lang := range language.Codes() {
			t, ok := c.Get(phrase, lang)
			if !ok {
				continue
			}
			if _, found, err := s.Lookup(ctx, phrase, lang); err != nil {
				return added, err
			} else if found {
				continue
			}
			if err := s.Upsert(ctx, phrase, lang, t); err != nil {
				return added, err
			}
			added++
		}
	}
	return added, nil
}

// Import copies every translation of c into s, replacing existing ones, and
// returns how many were written.
func Import(ctx context.Context, s Store, c *corpus.Corpus) (int, error) {
	n := 0
	for _, phrase := range c.Sorted() {
		for lang, t := range c.Phrases[phrase] {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			if err := s.Upsert(ctx, phrase, lang, t); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

type memoryKey struct {
	phrase string
	lang   string
}

// MemoryStore keeps translations in a map. It is used in tests and when no
// dictionary path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[memoryKey]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[memoryKey]string)}
}

func (m *MemoryStore) Lookup(ctx context.Context, text, lang string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.entries[memoryKey{Key(text), lang}]
	return t, ok, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, text, lang, translation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[memoryKey{Key(text), lang}] = strings.TrimSpace(translation)
	return nil
}

// Len returns the number of stored translations.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) Close() error {
	return nil
}

package dictionary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"codeberg.org/snonux/kumajala/internal/corpus"
)

// JSONStore keeps translations in a corpus-layout JSON file
// ({"fr": {phrase: {lang: translation}}}). Writers in this process are
// serialised by a mutex and across processes by a lock file; the file is
// replaced atomically on every write.
type JSONStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewJSONStore returns a store backed by path. The file is created on the
// first write.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path, lock: flock.New(path + ".lock")}
}

// Lookup returns the translation of text into lang, if any.
func (s *JSONStore) Lookup(ctx context.Context, text, lang string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.RLock(); err != nil {
		return "", false, fmt.Errorf("failed to lock dictionary: %w", err)
	}
	defer s.lock.Unlock()

	c, err := s.load()
	if err != nil {
		return "", false, err
	}
	t, ok := c.Get(Key(text), lang)
	return t, ok, nil
}

// Upsert records translation for text, replacing any previous value.
func (s *JSONStore) Upsert(ctx context.Context, text, lang, translation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock dictionary: %w", err)
	}
	defer s.lock.Unlock()

	c, err := s.load()
	if err != nil {
		return err
	}
	c.Set(Key(text), lang, translation)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp dictionary: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	if err := corpus.SaveJSON(tmpPath, c); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace dictionary: %w", err)
	}
	return nil
}

// load reads the file and folds its phrases, which may have been edited by
// hand.
func (s *JSONStore) load() (*corpus.Corpus, error) {
	raw, err := corpus.LoadJSON(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return corpus.New(), nil
	}
	if err != nil {
		return nil, err
	}
	c := corpus.New()
	for phrase, translations := range raw.Phrases {
		for lang, t := range translations {
			c.Set(Key(phrase), lang, t)
		}
	}
	return c, nil
}

// Close releases the lock file handle.
func (s *JSONStore) Close() error {
	return s.lock.Close()
}

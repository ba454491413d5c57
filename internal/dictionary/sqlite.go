package dictionary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS translations (
	phrase TEXT NOT NULL,
	language TEXT NOT NULL,
	translation TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (phrase, language)
)`

// SQLiteStore keeps translations in an SQLite database. Writes are
// serialised; the last writer for a key wins.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create dictionary schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Lookup returns the translation of text into lang, if any.
func (s *SQLiteStore) Lookup(ctx context.Context, text, lang string) (string, bool, error) {
	var t string
	err := s.db.QueryRowContext(ctx,
		`SELECT translation FROM translations WHERE phrase = ? AND language = ?`,
		Key(text), lang).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("dictionary lookup failed: %w", err)
	}
	return t, true, nil
}

// Upsert records translation for text, replacing any previous value.
func (s *SQLiteStore) Upsert(ctx context.Context, text, lang, translation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translations (phrase, language, translation, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (phrase, language) DO UPDATE SET translation = excluded.translation, updated_at = excluded.updated_at`,
		Key(text), lang, strings.TrimSpace(translation), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("dictionary upsert failed: %w", err)
	}
	return nil
}

// Count returns the number of translations per language.
func (s *SQLiteStore) Count(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT language, COUNT(*) FROM translations GROUP BY language`)
	if err != nil {
		return nil, fmt.Errorf("dictionary count failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, err
		}
		counts[lang] = n
	}
	return counts, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

package corpus

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// Row is the flat table layout used for parquet corpora: one row per
// phrase and target language.
type Row struct {
	Source      string `parquet:"source"`
	Language    string `parquet:"language"`
	Translation string `parquet:"translation"`
}

// Rows flattens the corpus into rows ordered by phrase then language.
func (c *Corpus) Rows() []Row {
	var rows []Row
	for _, phrase := range c.Sorted() {
		for _, lang := range sortedKeys(c.Phrases[phrase]) {
			rows = append(rows, Row{Source: phrase, Language: lang, Translation: c.Phrases[phrase][lang]})
		}
	}
	return rows
}

// LoadParquet reads a flat pair table.
func LoadParquet(path string) (*Corpus, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, &MalformedCorpusError{Path: path, Reason: "unreadable parquet table", Err: err}
	}

	c := New()
	for i, r := range rows {
		if r.Source == "" || r.Language == "" {
			return nil, &MalformedCorpusError{Path: path, Reason: fmt.Sprintf("row %d lacks source or language", i)}
		}
		c.Set(r.Source, r.Language, r.Translation)
	}
	return c, nil
}

// SaveParquet writes the corpus as a flat pair table.
func SaveParquet(path string, c *Corpus) error {
	if err := parquet.WriteFile(path, c.Rows()); err != nil {
		return fmt.Errorf("failed to write parquet corpus: %w", err)
	}
	return nil
}

package processor

import (
	"context"
	"fmt"

	"codeberg.org/snonux/kumajala/internal/batch"
	"codeberg.org/snonux/kumajala/internal/language"
	"codeberg.org/snonux/kumajala/internal/resolver"
)

// TranslatePhrase translates a single phrase from the command line.
func (p *Processor) TranslatePhrase(ctx context.Context, phrase string) error {
	lang, err := p.targetLanguage()
	if err != nil {
		return err
	}
	r, err := p.newResolver(ctx)
	if err != nil {
		return err
	}

	res, err := r.Resolve(ctx, phrase, lang)
	if err != nil {
		return err
	}
	if !res.Found {
		fmt.Printf("%s\n", dimStyle.Render("tried: "+describeAttempts(res.Attempts)))
		return fmt.Errorf("no %s translation found for '%s'", lang, phrase)
	}

	fmt.Printf("%s → %s\n", phrase, okStyle.Render(res.Text))
	fmt.Printf("  source: %s, confidence %.2f\n", res.Source, res.Confidence)
	fmt.Printf("  %s\n", dimStyle.Render("tried: "+describeAttempts(res.Attempts)))
	return nil
}

// BatchStats counts where the translations of a batch came from.
type BatchStats struct {
	Total      int
	BySource   map[resolver.Source]int
	NotFound   int
	Compared   int // entries with an expected translation
	Agreements int
	Errors     int
}

// TranslateBatch translates every phrase of the batch file and compares
// the result with the expected translation where one is given.
func (p *Processor) TranslateBatch(ctx context.Context) (*BatchStats, error) {
	lang, err := p.targetLanguage()
	if err != nil {
		return nil, err
	}
	entries, err := batch.ReadBatchFile(p.flags.BatchFile)
	if err != nil {
		return nil, err
	}
	r, err := p.newResolver(ctx)
	if err != nil {
		return nil, err
	}

	stats := &BatchStats{Total: len(entries), BySource: make(map[resolver.Source]int)}
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		fmt.Printf("\nTranslating %d/%d: %s\n", i+1, len(entries), entry.Phrase)

		res, err := r.Resolve(ctx, entry.Phrase, lang)
		if err != nil {
			fmt.Printf("  Warning: %v\n", err)
			stats.Errors++
			continue
		}
		if !res.Found {
			fmt.Printf("  %s no translation (%s)\n", mark(false), describeAttempts(res.Attempts))
			stats.NotFound++
			continue
		}
		stats.BySource[res.Source]++
		fmt.Printf("  → %s [%s, %.2f]\n", res.Text, res.Source, res.Confidence)

		if entry.Expected != "" {
			stats.Compared++
			agree := language.Fold(res.Text) == language.Fold(entry.Expected)
			if agree {
				stats.Agreements++
			}
			fmt.Printf("  %s expected: %s\n", mark(agree), entry.Expected)
		}
	}

	fmt.Println()
	fmt.Println(renderSummary("Batch Translation Summary", stats.rows(lang)))
	return stats, nil
}

func (s *BatchStats) rows(lang string) []summaryRow {
	rows := []summaryRow{
		row("Language", "%s", lang),
		row("Total phrases", "%d", s.Total),
		row("Dictionary", "%d", s.BySource[resolver.SourceDictionary]),
		row("Neural", "%d", s.BySource[resolver.SourceNeural]),
		row("Generative", "%d", s.BySource[resolver.SourceGenerative]),
		row("Not found", "%d", s.NotFound),
	}
	if s.Compared > 0 {
		rows = append(rows, row("Agreement", "%d/%d (%.1f%%)", s.Agreements, s.Compared,
			100*float64(s.Agreements)/float64(s.Compared)))
	}
	if s.Errors > 0 {
		rows = append(rows, row("Errors", "%d", s.Errors))
	}
	return rows
}

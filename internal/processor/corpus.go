package processor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"codeberg.org/snonux/kumajala/internal/corpus"
	"codeberg.org/snonux/kumajala/internal/dictionary"
	"codeberg.org/snonux/kumajala/internal/evaluation"
	"codeberg.org/snonux/kumajala/internal/generative"
	"codeberg.org/snonux/kumajala/internal/language"
	"codeberg.org/snonux/kumajala/internal/seq2seq"
)

// Enrichment retries rate-limited requests three times, starting at 5s.
const (
	enrichAttempts = 4
	enrichBackoff  = 5 * time.Second
)

// Import seeds the dictionary with the default phrases and, when --corpus
// is given, upserts every corpus translation.
func (p *Processor) Import(ctx context.Context) error {
	store, err := p.openStore()
	if err != nil {
		return err
	}

	seeded, err := dictionary.Seed(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to seed dictionary: %w", err)
	}
	rows := []summaryRow{
		row("Dictionary", "%s", p.flags.DictionaryPath),
		row("Seeded", "%d default phrases", seeded),
	}

	if p.flags.CorpusFile != "" {
		c, err := p.loadCorpus()
		if err != nil {
			return err
		}
		imported, err := dictionary.Import(ctx, store, c)
		if err != nil {
			return fmt.Errorf("failed to import corpus: %w", err)
		}
		rows = append(rows, row("Imported", "%d translations of %d phrases", imported, c.Len()))
	}

	if counter, ok := store.(interface {
		Count(context.Context) (map[string]int, error)
	}); ok {
		counts, err := counter.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count dictionary entries: %w", err)
		}
		langs := make([]string, 0, len(counts))
		for lang := range counts {
			langs = append(langs, lang)
		}
		sort.Strings(langs)
		for _, lang := range langs {
			rows = append(rows, row("  "+lang, "%d entries", counts[lang]))
		}
	}

	fmt.Println(renderSummary("Dictionary Import Summary", rows))
	return nil
}

// Enrich fills the translations missing from the corpus with the
// generative service and writes the result to --output (or back to
// --corpus).
func (p *Processor) Enrich(ctx context.Context) (*corpus.EnrichResult, error) {
	if p.flags.CorpusFile == "" {
		return nil, fmt.Errorf("no corpus given, use --corpus")
	}
	langs, err := p.languages()
	if err != nil {
		return nil, err
	}
	gen := p.loadGenerator(ctx)
	if gen == nil {
		return nil, fmt.Errorf("enrichment needs a generative service, use --generator openai or gemini with an API key: %w", generative.ErrUnavailable)
	}

	out := p.flags.OutputFile
	if out == "" {
		out = p.flags.CorpusFile
	}

	enricher := corpus.NewEnricher(generative.NewRetrying(gen, enrichAttempts, enrichBackoff))
	enricher.Limit = p.flags.EnrichLimit

	fmt.Printf("Enriching %s into %v with %s...\n", p.flags.CorpusFile, langs, gen.Name())
	res, err := enricher.EnrichFile(ctx, p.flags.CorpusFile, out, langs)
	if err != nil {
		return res, err
	}

	rows := []summaryRow{row("Output", "%s", out)}
	for _, lang := range langs {
		rows = append(rows, row(lang, "%d added, %d failed", res.Added[lang], res.Failed[lang]))
	}
	rows = append(rows, row("Total added", "%d", res.Total()))
	fmt.Println(renderSummary("Enrichment Summary", rows))
	return res, nil
}

// Evaluate scores the trained model of --language on every pair of the
// corpus.
func (p *Processor) Evaluate(ctx context.Context) (*evaluation.Report, error) {
	lang, err := p.targetLanguage()
	if err != nil {
		return nil, err
	}
	c, err := p.loadCorpus()
	if err != nil {
		return nil, err
	}
	pairs := c.Pairs(lang)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("corpus %s has no %s translations", p.flags.CorpusFile, lang)
	}

	t, err := seq2seq.LoadArtifact(seq2seq.ArtifactDir(p.flags.ModelsDir, lang), lang, p.flags.GenerateOptions())
	if err != nil {
		return nil, err
	}

	fmt.Printf("Evaluating %s model on %d pairs...\n", lang, len(pairs))
	rep := evaluation.Evaluate(t, pairs)

	for i, ex := range rep.Examples {
		if i == 5 {
			fmt.Printf("  ... and %d more\n", len(rep.Examples)-i)
			break
		}
		fmt.Printf("  %s %s → %s (expected %s)\n", mark(language.Fold(ex.Hypothesis) == language.Fold(ex.Reference)), ex.Source, ex.Hypothesis, ex.Reference)
	}

	s := rep.Score
	fmt.Println()
	fmt.Println(renderSummary("Evaluation Summary", []summaryRow{
		row("Language", "%s", lang),
		row("Samples", "%d", rep.NumSamples),
		row("BLEU", "%.2f", s.BLEU),
		row("Precisions", "%.1f / %.1f / %.1f / %.1f", s.Precisions[0], s.Precisions[1], s.Precisions[2], s.Precisions[3]),
		row("Brevity penalty", "%.3f", s.BrevityPenalty),
		row("Exact match", "%.1f%%", rep.ExactMatch),
		row("Avg inference", "%v", rep.AvgInferenceTime),
	}))
	return rep, nil
}

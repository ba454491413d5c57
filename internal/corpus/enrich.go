package corpus

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// Generator produces a translation of a source phrase into lang.
type Generator interface {
	Generate(ctx context.Context, text, lang string) (string, error)
	Name() string
}

// EnrichResult summarises one enrichment run.
type EnrichResult struct {
	Added  map[string]int
	Failed map[string]int
}

// Total returns the number of translations added over all languages.
func (r *EnrichResult) Total() int {
	n := 0
	for _, v := range r.Added {
		n += v
	}
	return n
}

// Enricher fills the gaps of a corpus with generated translations.
type Enricher struct {
	gen Generator
	// Limit caps the number of generated translations per language; 0 means
	// no cap.
	Limit int
}

// NewEnricher returns an enricher using gen.
func NewEnricher(gen Generator) *Enricher {
	return &Enricher{gen: gen}
}

// Enrich asks the generator for every missing translation into langs and
// stores the answers in c. A failed phrase is logged and skipped; only a
// cancelled context aborts the run.
func (e *Enricher) Enrich(ctx context.Context, c *Corpus, langs []string) (*EnrichResult, error) {
	res := &EnrichResult{Added: make(map[string]int), Failed: make(map[string]int)}
	for _, lang := range langs {
		missing := c.Missing(lang)
		if e.Limit > 0 && len(missing) > e.Limit {
			missing = missing[:e.Limit]
		}
		klog.V(1).Infof("enriching %d phrases into %s with %s", len(missing), lang, e.gen.Name())

		for _, phrase := range missing {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			translation, err := e.gen.Generate(ctx, phrase, lang)
			if err != nil {
				if ctx.Err() != nil {
					return res, ctx.Err()
				}
				klog.Warningf("failed to generate %s translation of %q: %v", lang, phrase, err)
				res.Failed[lang]++
				continue
			}
			c.Set(phrase, lang, translation)
			res.Added[lang]++
		}
	}
	return res, nil
}

// EnrichFile loads the corpus at in, enriches it and writes it to out.
func (e *Enricher) EnrichFile(ctx context.Context, in, out string, langs []string) (*EnrichResult, error) {
	c, err := Load(in)
	if err != nil {
		return nil, err
	}
	res, err := e.Enrich(ctx, c, langs)
	if saveErr := Save(out, c); saveErr != nil {
		return res, fmt.Errorf("failed to save enriched corpus: %w", saveErr)
	}
	return res, err
}

// Package resolver answers translation requests by trying the dictionary,
// then the neural model, then the external generative service.
package resolver

import (
	"context"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"codeberg.org/snonux/kumajala/internal/confidence"
	"codeberg.org/snonux/kumajala/internal/dictionary"
	"codeberg.org/snonux/kumajala/internal/generative"
	"codeberg.org/snonux/kumajala/internal/language"
)

// DefaultThreshold is the minimum neural confidence accepted without
// escalation.
const DefaultThreshold = 0.7

// Source names the tier a result came from.
type Source string

const (
	SourceDictionary Source = "dictionary"
	SourceNeural     Source = "neural"
	SourceGenerative Source = "generative"
	SourceNone       Source = "none"
)

// Outcome is the result of one tier.
type Outcome int

const (
	// Unavailable means the tier produced no text.
	Unavailable Outcome = iota
	// LowConfidence carries text scored below the threshold.
	LowConfidence
	// Hit carries an accepted translation.
	Hit
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case LowConfidence:
		return "low-confidence"
	}
	return "unavailable"
}

// Attempt records what one tier returned.
type Attempt struct {
	Source  Source
	Outcome Outcome
	Text    string
	Score   float64
}

// Result is the final answer. Confidence is 1 for dictionary hits, the
// neural score for neural results and 0 for generated text, which is not
// scored. Found is false when no tier produced text.
type Result struct {
	Text       string
	Language   string
	Source     Source
	Confidence float64
	Found      bool
	Attempts   []Attempt
}

// Config tunes the resolver.
type Config struct {
	Threshold float64
	// Thresholds overrides Threshold per language code.
	Thresholds map[string]float64
	// StoreGenerated writes generated translations back to the dictionary.
	StoreGenerated bool
}

// Estimator scores a neural translation from its attention trace and
// latency.
type Estimator interface {
	Estimate(trace [][]float64, elapsed time.Duration) float64
}

// Resolver is safe for concurrent use as long as its collaborators are.
// Any collaborator may be nil, which disables that tier.
type Resolver struct {
	store     dictionary.Store
	registry  *Registry
	generator generative.Generator
	estimator Estimator
	cfg       Config
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold}
}

// New returns a resolver over the given tiers. cfg is used as given, so a
// zero Threshold accepts every neural translation.
func New(store dictionary.Store, registry *Registry, gen generative.Generator, cfg Config) *Resolver {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Resolver{
		store:     store,
		registry:  registry,
		generator: gen,
		estimator: confidence.NewEstimator(),
		cfg:       cfg,
	}
}

// WithEstimator replaces the attention-entropy estimator.
func (r *Resolver) WithEstimator(e Estimator) *Resolver {
	r.estimator = e
	return r
}

// Threshold returns the confidence threshold for lang.
func (r *Resolver) Threshold(lang string) float64 {
	if t, ok := r.cfg.Thresholds[lang]; ok {
		return t
	}
	return r.cfg.Threshold
}

// Resolve translates text into lang. Only an unsupported language is an
// error; tier failures degrade to the next tier and finally to a result with
// Found unset.
func (r *Resolver) Resolve(ctx context.Context, text, lang string) (*Result, error) {
	code, err := language.Normalize(lang)
	if err != nil {
		return nil, err
	}
	res := &Result{Language: code, Source: SourceNone}
	text = strings.TrimSpace(text)
	if text == "" {
		return res, nil
	}

	dict := r.lookup(ctx, text, code)
	res.Attempts = append(res.Attempts, dict)
	if dict.Outcome == Hit {
		return res.accept(dict, 1), nil
	}

	neural := r.translate(text, code)
	res.Attempts = append(res.Attempts, neural)
	if neural.Outcome == Hit {
		return res.accept(neural, neural.Score), nil
	}

	gen := r.generate(ctx, text, code)
	res.Attempts = append(res.Attempts, gen)
	if gen.Outcome == Hit {
		return res.accept(gen, 0), nil
	}

	if neural.Outcome == LowConfidence {
		return res.accept(neural, neural.Score), nil
	}
	return res, nil
}

func (res *Result) accept(a Attempt, conf float64) *Result {
	res.Text = a.Text
	res.Source = a.Source
	res.Confidence = conf
	res.Found = true
	return res
}

func (r *Resolver) lookup(ctx context.Context, text, lang string) Attempt {
	a := Attempt{Source: SourceDictionary}
	if r.store == nil {
		return a
	}
	t, ok, err := r.store.Lookup(ctx, dictionary.Key(text), lang)
	if err != nil {
		klog.Warningf("dictionary lookup for %q failed: %v", text, err)
		return a
	}
	if ok && t != "" {
		a.Outcome, a.Text, a.Score = Hit, t, 1
	}
	return a
}

func (r *Resolver) translate(text, lang string) Attempt {
	a := Attempt{Source: SourceNeural}
	t, ok := r.registry.Get(lang)
	if !ok {
		return a
	}
	out, trace, elapsed := t.Translate(text)
	if out == "" {
		return a
	}
	a.Text = out
	a.Score = r.estimator.Estimate(trace, elapsed)
	a.Outcome = LowConfidence
	if a.Score >= r.Threshold(lang) {
		a.Outcome = Hit
	}
	klog.V(1).Infof("neural %s %q: %q confidence %.2f (%s)", lang, text, out, a.Score, a.Outcome)
	return a
}

func (r *Resolver) generate(ctx context.Context, text, lang string) Attempt {
	a := Attempt{Source: SourceGenerative}
	if r.generator == nil {
		return a
	}
	out, err := r.generator.Generate(ctx, text, lang)
	if err != nil {
		klog.Warningf("generative translation of %q failed: %v", text, err)
		return a
	}
	a.Outcome, a.Text = Hit, out

	if r.cfg.StoreGenerated && r.store != nil {
		if err := r.store.Upsert(ctx, dictionary.Key(text), lang, out); err != nil {
			klog.Warningf("failed to store generated translation: %v", err)
		}
	}
	return a
}

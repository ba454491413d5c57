package evaluation

import (
	"time"

	"codeberg.org/snonux/kumajala/internal/corpus"
	"codeberg.org/snonux/kumajala/internal/language"
	"k8s.io/klog/v2"
)

// Translator is the part of a neural translator evaluation needs.
type Translator interface {
	Translate(text string) (string, [][]float64, time.Duration)
}

// Example is one scored test pair.
type Example struct {
	Source     string
	Reference  string
	Hypothesis string
	Elapsed    time.Duration
}

// Report summarises an evaluation run.
type Report struct {
	NumSamples       int
	Score            Score
	ExactMatch       float64 // percentage of case-folded exact matches
	AvgInferenceTime time.Duration
	Examples         []Example
}

// Evaluate translates every pair's source and scores the output against the
// pair's target.
func Evaluate(t Translator, pairs []corpus.Pair) *Report {
	r := &Report{Examples: make([]Example, 0, len(pairs))}
	refs := make([]string, 0, len(pairs))
	hyps := make([]string, 0, len(pairs))

	var total time.Duration
	exact := 0
	for _, p := range pairs {
		hyp, _, elapsed := t.Translate(p.Source)
		total += elapsed
		if language.Fold(hyp) == language.Fold(p.Target) {
			exact++
		}
		refs = append(refs, p.Target)
		hyps = append(hyps, hyp)
		r.Examples = append(r.Examples, Example{Source: p.Source, Reference: p.Target, Hypothesis: hyp, Elapsed: elapsed})
	}

	r.NumSamples = len(pairs)
	r.Score = BLEU(refs, hyps)
	if r.NumSamples > 0 {
		r.ExactMatch = 100 * float64(exact) / float64(r.NumSamples)
		r.AvgInferenceTime = total / time.Duration(r.NumSamples)
	}
	klog.V(1).Infof("evaluated %d samples: BLEU %.2f, exact %.1f%%", r.NumSamples, r.Score.BLEU, r.ExactMatch)
	return r
}

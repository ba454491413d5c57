package evaluation

import (
	"math"
	"testing"
	"time"

	"codeberg.org/snonux/kumajala/internal/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBLEUPerfect(t *testing.T) {
	refs := []string{"le chat est sur le tapis", "il fait beau aujourd'hui"}
	s := BLEU(refs, refs)
	assert.InDelta(t, 100, s.BLEU, 1e-9)
	for _, p := range s.Precisions {
		assert.InDelta(t, 100, p, 1e-9)
	}
	assert.Equal(t, 1.0, s.BrevityPenalty)
}

func TestBLEUZeroOnMissingOrder(t *testing.T) {
	s := BLEU([]string{"a b c d"}, []string{"a b"})
	assert.Equal(t, 0.0, s.BLEU)
	assert.InDelta(t, 100, s.Precisions[0], 1e-9)
	assert.Equal(t, 0.0, s.Precisions[2])
}

func TestBLEUClipsCounts(t *testing.T) {
	s := BLEU([]string{"the cat"}, []string{"the the the"})
	// "the" appears once in the reference, three times in the hypothesis.
	assert.InDelta(t, 100.0/3, s.Precisions[0], 1e-9)
}

func TestBLEUBrevityPenalty(t *testing.T) {
	ref := "a b c d e f g h"
	hyp := "a b c d e f"
	s := BLEU([]string{ref}, []string{hyp})
	require.Equal(t, 8, s.ReferenceLen)
	require.Equal(t, 6, s.HypothesisLen)
	assert.InDelta(t, math.Exp(1-8.0/6.0), s.BrevityPenalty, 1e-12)
	assert.InDelta(t, 100*s.BrevityPenalty, s.BLEU, 1e-9)
}

func TestBLEUEmpty(t *testing.T) {
	s := BLEU(nil, nil)
	assert.Equal(t, 0.0, s.BLEU)
	s = BLEU([]string{"a"}, []string{""})
	assert.Equal(t, 0.0, s.BLEU)
	assert.Equal(t, 0.0, s.BrevityPenalty)
}

type tableTranslator map[string]string

func (tt tableTranslator) Translate(text string) (string, [][]float64, time.Duration) {
	return tt[text], nil, 10 * time.Millisecond
}

func TestEvaluate(t *testing.T) {
	tr := tableTranslator{
		"bonjour": "akwaba",
		"merci":   "Akpé o",
	}
	pairs := []corpus.Pair{{Source: "bonjour", Target: "Akwaba"}, {Source: "merci", Target: "Akpé"}}

	r := Evaluate(tr, pairs)
	assert.Equal(t, 2, r.NumSamples)
	assert.InDelta(t, 50, r.ExactMatch, 1e-9)
	assert.Equal(t, 10*time.Millisecond, r.AvgInferenceTime)
	require.Len(t, r.Examples, 2)
	assert.Equal(t, "Akpé o", r.Examples[1].Hypothesis)
	assert.InDelta(t, 100*2.0/3, r.Score.Precisions[0], 1e-9)
}

func TestEvaluateNoPairs(t *testing.T) {
	r := Evaluate(tableTranslator{}, nil)
	assert.Equal(t, 0, r.NumSamples)
	assert.Equal(t, time.Duration(0), r.AvgInferenceTime)
}

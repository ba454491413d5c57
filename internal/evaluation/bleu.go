// Package evaluation scores translations against references with corpus
// BLEU and exact-match rates.
package evaluation

import (
	"math"
	"strings"

	"codeberg.org/snonux/kumajala/internal/vocab"
)

// MaxOrder is the longest n-gram BLEU counts.
const MaxOrder = 4

// Score is a corpus-level BLEU result. All values are percentages except
// BrevityPenalty.
type Score struct {
	BLEU           float64
	Precisions     [MaxOrder]float64
	BrevityPenalty float64
	HypothesisLen  int
	ReferenceLen   int
}

// BLEU computes corpus BLEU-4 over aligned references and hypotheses:
// clipped n-gram precisions, their geometric mean and the brevity penalty.
// Any zero precision gives a BLEU of 0. Extra entries of the longer slice
// are ignored.
func BLEU(references, hypotheses []string) Score {
	n := len(references)
	if len(hypotheses) < n {
		n = len(hypotheses)
	}

	var matches, totals [MaxOrder]int
	var s Score
	for i := 0; i < n; i++ {
		ref := vocab.Tokenize(references[i])
		hyp := vocab.Tokenize(hypotheses[i])
		s.ReferenceLen += len(ref)
		s.HypothesisLen += len(hyp)

		for order := 1; order <= MaxOrder; order++ {
			refCounts := ngrams(ref, order)
			for gram, c := range ngrams(hyp, order) {
				matches[order-1] += min(c, refCounts[gram])
			}
			if l := len(hyp) - order + 1; l > 0 {
				totals[order-1] += l
			}
		}
	}

	logSum := 0.0
	positive := true
	for i := range s.Precisions {
		if totals[i] > 0 {
			s.Precisions[i] = 100 * float64(matches[i]) / float64(totals[i])
		}
		if s.Precisions[i] == 0 {
			positive = false
			continue
		}
		logSum += math.Log(s.Precisions[i])
	}

	s.BrevityPenalty = brevityPenalty(s.HypothesisLen, s.ReferenceLen)
	if positive {
		s.BLEU = s.BrevityPenalty * math.Exp(logSum/MaxOrder)
	}
	return s
}

func brevityPenalty(hypLen, refLen int) float64 {
	switch {
	case hypLen == 0:
		return 0
	case hypLen >= refLen:
		return 1
	}
	return math.Exp(1 - float64(refLen)/float64(hypLen))
}

func ngrams(tokens []string, n int) map[string]int {
	counts := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		counts[strings.Join(tokens[i:i+n], "\x00")]++
	}
	return counts
}

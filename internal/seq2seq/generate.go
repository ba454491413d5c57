package seq2seq

import (
	"sort"

	"codeberg.org/snonux/kumajala/internal/nn"
	"codeberg.org/snonux/kumajala/internal/vocab"
)

// DefaultMaxSteps bounds generation when no limit is given.
const DefaultMaxSteps = 50

// GenerateOptions controls decoding.
type GenerateOptions struct {
	MaxSteps  int
	BeamWidth int // <= 1 means greedy
}

// Generation is a decoded target sequence without reserved tokens, the
// attention weights of every step (the step that produced END included) and
// the summed log-probability of the chosen tokens.
type Generation struct {
	IDs       []int
	Attention [][]float64
	LogProb   float64
}

// Generate decodes src without teacher forcing. It never fails: an empty
// source yields an empty generation.
func (m *Model) Generate(src []int, opts GenerateOptions) Generation {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if len(src) == 0 || checkIDs(src, m.SrcVocabSize) != nil {
		return Generation{}
	}
	if opts.BeamWidth > 1 {
		return m.beamSearch(src, opts)
	}
	return m.greedy(src, opts)
}

func (m *Model) greedy(src []int, opts GenerateOptions) Generation {
	_, keys, h, c := m.encode(src, nil, 0)

	buf := make([]int, opts.MaxSteps)
	n := 0
	g := Generation{Attention: make([][]float64, 0, opts.MaxSteps)}
	logp := make([]float64, m.TgtVocabSize)
	token := vocab.StartID
	for step := 0; step < opts.MaxSteps; step++ {
		s := m.Decoder.Step(keys, token, h, c, nil, 0)
		g.Attention = append(g.Attention, s.Attn.Weights)

		next := nn.Argmax(s.Logits)
		nn.LogSoftmax(logp, s.Logits)
		g.LogProb += logp[next]
		if next == vocab.EndID {
			break
		}
		buf[n] = next
		n++
		token, h, c = next, s.H(), s.C()
	}
	g.IDs = buf[:n]
	return g
}

type hypothesis struct {
	ids       []int
	attention [][]float64
	logProb   float64
	h, c      []float64
	done      bool
}

// score normalises by the number of decoding steps so that short hypotheses
// are not favoured.
func (hy *hypothesis) score() float64 {
	steps := len(hy.attention)
	if steps == 0 {
		return hy.logProb
	}
	return hy.logProb / float64(steps)
}

func (m *Model) beamSearch(src []int, opts GenerateOptions) Generation {
	_, keys, h0, c0 := m.encode(src, nil, 0)
	width := opts.BeamWidth

	live := []*hypothesis{{h: h0, c: c0}}
	var finished []*hypothesis
	logp := make([]float64, m.TgtVocabSize)

	for step := 0; step < opts.MaxSteps && len(live) > 0; step++ {
		var candidates []*hypothesis
		for _, hy := range live {
			token := vocab.StartID
			if len(hy.ids) > 0 {
				token = hy.ids[len(hy.ids)-1]
			}
			s := m.Decoder.Step(keys, token, hy.h, hy.c, nil, 0)
			nn.LogSoftmax(logp, s.Logits)

			for _, id := range topK(logp, width) {
				cand := &hypothesis{
					attention: append(append([][]float64(nil), hy.attention...), s.Attn.Weights),
					logProb:   hy.logProb + logp[id],
					h:         s.H(),
					c:         s.C(),
				}
				if id == vocab.EndID {
					cand.ids = hy.ids
					cand.done = true
				} else {
					cand.ids = append(append([]int(nil), hy.ids...), id)
				}
				candidates = append(candidates, cand)
			}
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].logProb > candidates[j].logProb
		})
		if len(candidates) > width {
			candidates = candidates[:width]
		}

		live = live[:0]
		for _, cand := range candidates {
			if cand.done {
				finished = append(finished, cand)
			} else {
				live = append(live, cand)
			}
		}
		width = opts.BeamWidth - len(finished)
		if width <= 0 {
			break
		}
	}

	pool := append(finished, live...)
	best := pool[0]
	for _, hy := range pool[1:] {
		if hy.score() > best.score() {
			best = hy
		}
	}
	return Generation{IDs: append([]int{}, best.ids...), Attention: best.attention, LogProb: best.logProb}
}

// topK returns the indices of the k largest values, largest first, ties by
// lower index.
func topK(x []float64, k int) []int {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return x[idx[a]] > x[idx[b]]
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

package seq2seq

import (
	"math"
	"math/rand"

	"codeberg.org/snonux/kumajala/internal/nn"
)

// maskedScore is the score given to padded source positions before the
// softmax.
const maskedScore = -1e9

// Attention scores encoder outputs against the decoder state with
// e_t = v · tanh(W1 q + W2 V_t + b).
type Attention struct {
	Query *nn.Linear // W1, b
	Key   *nn.Param  // W2
	Score *nn.Param  // v
	Units int
}

// Keys holds the encoder outputs and their projection W2 V_t, computed once
// per source sequence.
type Keys struct {
	Values [][]float64
	Proj   [][]float64
	Mask   []bool
}

// AttentionStep caches one attention evaluation.
type AttentionStep struct {
	Query   []float64
	Hidden  [][]float64 // tanh(W1 q + W2 V_t + b); nil where masked
	Weights []float64
	Context []float64
}

func newAttention(ps *nn.ParamSet, queryDim, valueDim, units int, rng *rand.Rand) *Attention {
	a := &Attention{
		Query: nn.NewLinear(ps, "attention.query", queryDim, units, rng),
		Key:   ps.New("attention.key.kernel", units, valueDim),
		Score: ps.New("attention.score.kernel", units, 1),
		Units: units,
	}
	if rng != nil {
		a.Key.GlorotUniform(rng)
		a.Score.GlorotUniform(rng)
	}
	return a
}

// Keys projects the encoder outputs.
func (a *Attention) Keys(values [][]float64, mask []bool) *Keys {
	k := &Keys{Values: values, Proj: make([][]float64, len(values)), Mask: mask}
	for t, v := range values {
		if !mask[t] {
			continue
		}
		p := make([]float64, a.Units)
		nn.AddMulVec(p, a.Key.W, v)
		k.Proj[t] = p
	}
	return k
}

// Forward attends over k with query q.
func (a *Attention) Forward(k *Keys, q []float64) *AttentionStep {
	n := len(k.Values)
	s := &AttentionStep{
		Query:   q,
		Hidden:  make([][]float64, n),
		Weights: make([]float64, n),
	}
	wq := a.Query.Forward(q)
	v := a.Score.Data()
	scores := make([]float64, n)
	for t := 0; t < n; t++ {
		if !k.Mask[t] {
			scores[t] = maskedScore
			continue
		}
		u := make([]float64, a.Units)
		e := 0.0
		for j := range u {
			u[j] = math.Tanh(wq[j] + k.Proj[t][j])
			e += v[j] * u[j]
		}
		s.Hidden[t] = u
		scores[t] = e
	}
	nn.Softmax(s.Weights, scores)

	s.Context = make([]float64, len(k.Values[0]))
	for t, w := range s.Weights {
		if w == 0 {
			continue
		}
		for j, x := range k.Values[t] {
			s.Context[j] += w * x
		}
	}
	return s
}

// Backward takes the gradient on the context vector, accumulates parameter
// gradients, adds into dProj and dValues per source position and returns the
// gradient on the query.
func (a *Attention) Backward(k *Keys, s *AttentionStep, dCtx []float64, dProj, dValues [][]float64) []float64 {
	n := len(k.Values)
	dAlpha := make([]float64, n)
	dot := 0.0
	for t := 0; t < n; t++ {
		if !k.Mask[t] {
			continue
		}
		for j, x := range k.Values[t] {
			dAlpha[t] += dCtx[j] * x
			dValues[t][j] += s.Weights[t] * dCtx[j]
		}
		dot += s.Weights[t] * dAlpha[t]
	}

	v := a.Score.Data()
	dv := a.Score.GradData()
	dPre := make([]float64, a.Units)
	for t := 0; t < n; t++ {
		if !k.Mask[t] {
			continue
		}
		de := s.Weights[t] * (dAlpha[t] - dot)
		u := s.Hidden[t]
		for j := range u {
			dv[j] += de * u[j]
			d := de * v[j] * (1 - u[j]*u[j])
			dPre[j] += d
			dProj[t][j] += d
		}
	}
	return a.Query.Backward(s.Query, dPre)
}

// KeysBackward folds the accumulated dProj into W2 and the encoder outputs.
func (a *Attention) KeysBackward(k *Keys, dProj, dValues [][]float64) {
	for t := range k.Values {
		if !k.Mask[t] {
			continue
		}
		nn.AddOuter(a.Key.G, 1, dProj[t], k.Values[t])
		nn.AddMulTVec(dValues[t], a.Key.W, dProj[t])
	}
}

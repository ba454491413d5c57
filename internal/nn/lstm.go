package nn

import (
	"math"
	"math/rand"
)

// LSTM is a single long short-term memory cell. Gates are packed in the order
// input, forget, candidate, output along the rows of W, U and B.
type LSTM struct {
	Input  int
	Hidden int
	W      *Param // 4H x Input
	U      *Param // 4H x H
	B      *Param // 4H x 1
}

// LSTMStep caches everything one step needs for its backward pass.
type LSTMStep struct {
	X, HPrev, CPrev []float64
	I, F, G, O      []float64
	C, TanhC, H     []float64
}

// NewLSTM registers the cell parameters under prefix. The forget-gate bias
// starts at 1.
func NewLSTM(ps *ParamSet, prefix string, input, hidden int, rng *rand.Rand) *LSTM {
	l := &LSTM{
		Input:  input,
		Hidden: hidden,
		W:      ps.New(prefix+".kernel", 4*hidden, input),
		U:      ps.New(prefix+".recurrent_kernel", 4*hidden, hidden),
		B:      ps.New(prefix+".bias", 4*hidden, 1),
	}
	if rng != nil {
		l.W.GlorotUniform(rng)
		l.U.GlorotUniform(rng)
	}
	bias := l.B.Data()
	for j := hidden; j < 2*hidden; j++ {
		bias[j] = 1
	}
	return l
}

// Step advances the cell by one input.
func (l *LSTM) Step(x, hPrev, cPrev []float64) *LSTMStep {
	h := l.Hidden
	z := make([]float64, 4*h)
	copy(z, l.B.Data())
	AddMulVec(z, l.W.W, x)
	AddMulVec(z, l.U.W, hPrev)

	s := &LSTMStep{
		X: x, HPrev: hPrev, CPrev: cPrev,
		I: make([]float64, h), F: make([]float64, h),
		G: make([]float64, h), O: make([]float64, h),
		C: make([]float64, h), TanhC: make([]float64, h), H: make([]float64, h),
	}
	for j := 0; j < h; j++ {
		s.I[j] = Sigmoid(z[j])
		s.F[j] = Sigmoid(z[h+j])
		s.G[j] = math.Tanh(z[2*h+j])
		s.O[j] = Sigmoid(z[3*h+j])
		s.C[j] = s.F[j]*cPrev[j] + s.I[j]*s.G[j]
		s.TanhC[j] = math.Tanh(s.C[j])
		s.H[j] = s.O[j] * s.TanhC[j]
	}
	return s
}

// Backward accumulates parameter gradients for one step given the gradients
// flowing into its hidden and cell outputs, and returns the gradients for the
// step input and the previous state.
func (l *LSTM) Backward(s *LSTMStep, dh, dc []float64) (dx, dhPrev, dcPrev []float64) {
	h := l.Hidden
	dz := make([]float64, 4*h)
	dcPrev = make([]float64, h)
	for j := 0; j < h; j++ {
		do := dh[j] * s.TanhC[j]
		dct := dh[j]*s.O[j]*(1-s.TanhC[j]*s.TanhC[j]) + dc[j]
		di := dct * s.G[j]
		dg := dct * s.I[j]
		df := dct * s.CPrev[j]
		dcPrev[j] = dct * s.F[j]

		dz[j] = di * s.I[j] * (1 - s.I[j])
		dz[h+j] = df * s.F[j] * (1 - s.F[j])
		dz[2*h+j] = dg * (1 - s.G[j]*s.G[j])
		dz[3*h+j] = do * s.O[j] * (1 - s.O[j])
	}

	AddOuter(l.W.G, 1, dz, s.X)
	AddOuter(l.U.G, 1, dz, s.HPrev)
	bg := l.B.GradData()
	for j, v := range dz {
		bg[j] += v
	}

	dx = make([]float64, l.Input)
	AddMulTVec(dx, l.W.W, dz)
	dhPrev = make([]float64, h)
	AddMulTVec(dhPrev, l.U.W, dz)
	return dx, dhPrev, dcPrev
}

package nn

import "math"

// Adam implements the Adam optimiser with bias-corrected moment estimates.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	step int
	m    map[*Param][]float64
	v    map[*Param][]float64
}

// NewAdam returns an optimiser with the usual defaults (0.9, 0.999, 1e-7).
func NewAdam(lr float64) *Adam {
	return &Adam{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-7,
		m:            make(map[*Param][]float64),
		v:            make(map[*Param][]float64),
	}
}

// Steps returns the number of updates applied so far.
func (a *Adam) Steps() int {
	return a.step
}

// Step applies one update to every parameter from its accumulated gradient.
// Gradients are left untouched; callers zero them before the next batch.
func (a *Adam) Step(params []*Param) {
	a.step++
	bc1 := 1 - math.Pow(a.Beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.Beta2, float64(a.step))

	for _, p := range params {
		w := p.Data()
		g := p.GradData()
		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(w))
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = make([]float64, len(w))
			a.v[p] = v
		}
		for i := range w {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g[i]
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g[i]*g[i]
			mHat := m[i] / bc1
			vHat := v[i] / bc2
			w[i] -= a.LearningRate * mHat / (math.Sqrt(vHat) + a.Epsilon)
		}
	}
}

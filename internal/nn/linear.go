package nn

import "math/rand"

// Linear is an affine map y = W x + b.
type Linear struct {
	W *Param // out x in
	B *Param // out x 1
}

// NewLinear registers a Glorot-initialised affine layer under prefix.
func NewLinear(ps *ParamSet, prefix string, in, out int, rng *rand.Rand) *Linear {
	l := &Linear{
		W: ps.New(prefix+".kernel", out, in),
		B: ps.New(prefix+".bias", out, 1),
	}
	if rng != nil {
		l.W.GlorotUniform(rng)
	}
	return l
}

// Forward returns W x + b.
func (l *Linear) Forward(x []float64) []float64 {
	y := append([]float64(nil), l.B.Data()...)
	AddMulVec(y, l.W.W, x)
	return y
}

// Backward accumulates dW and db for input x and output gradient dy and
// returns the gradient with respect to x.
func (l *Linear) Backward(x, dy []float64) []float64 {
	AddOuter(l.W.G, 1, dy, x)
	bg := l.B.GradData()
	for i, v := range dy {
		bg[i] += v
	}
	_, in := l.W.Dims()
	dx := make([]float64, in)
	AddMulTVec(dx, l.W.W, dy)
	return dx
}

// Embedding is a lookup table of Size rows of width Dim.
type Embedding struct {
	Table *Param
	Size  int
	Dim   int
}

// NewEmbedding registers a uniformly initialised embedding table.
func NewEmbedding(ps *ParamSet, name string, size, dim int, rng *rand.Rand) *Embedding {
	e := &Embedding{Table: ps.New(name, size, dim), Size: size, Dim: dim}
	if rng != nil {
		e.Table.Uniform(rng, 0.05)
	}
	return e
}

// Lookup returns a copy of the row for id.
func (e *Embedding) Lookup(id int) []float64 {
	return append([]float64(nil), e.Table.W.RawRowView(id)...)
}

// Accumulate adds d to the gradient row of id.
func (e *Embedding) Accumulate(id int, d []float64) {
	row := e.Table.G.RawRowView(id)
	for i, v := range d {
		row[i] += v
	}
}

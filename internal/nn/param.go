package nn

import (
	"math"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Param is a named trainable tensor together with its gradient accumulator.
// Vectors (biases, scoring vectors) are stored as single-column matrices.
type Param struct {
	Name string
	W    *mat.Dense
	G    *mat.Dense
}

// NewParam allocates a zeroed parameter of the given shape.
func NewParam(name string, rows, cols int) *Param {
	return &Param{
		Name: name,
		W:    mat.NewDense(rows, cols, nil),
		G:    mat.NewDense(rows, cols, nil),
	}
}

// Dims returns the parameter shape.
func (p *Param) Dims() (int, int) {
	return p.W.Dims()
}

// Size returns the number of scalars held by the parameter.
func (p *Param) Size() int {
	r, c := p.W.Dims()
	return r * c
}

// Data exposes the contiguous backing slice of the weights.
func (p *Param) Data() []float64 {
	return p.W.RawMatrix().Data
}

// GradData exposes the contiguous backing slice of the gradient.
func (p *Param) GradData() []float64 {
	return p.G.RawMatrix().Data
}

// Vec returns a vector view sharing storage with a single-column parameter.
func (p *Param) Vec() *mat.VecDense {
	r, _ := p.W.Dims()
	return mat.NewVecDense(r, p.Data())
}

// ZeroGrad clears the gradient accumulator.
func (p *Param) ZeroGrad() {
	p.G.Zero()
}

// GlorotUniform fills the weights with U(-l, l), l = sqrt(6/(fanIn+fanOut)).
func (p *Param) GlorotUniform(rng *rand.Rand) {
	rows, cols := p.W.Dims()
	p.Uniform(rng, math.Sqrt(6/float64(rows+cols)))
}

// Uniform fills the weights with U(-limit, limit).
func (p *Param) Uniform(rng *rand.Rand, limit float64) {
	data := p.Data()
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}
}

// Fill sets every weight to v.
func (p *Param) Fill(v float64) {
	data := p.Data()
	for i := range data {
		data[i] = v
	}
}

// ParamSet is an ordered registry of the parameters of a model.
type ParamSet struct {
	params []*Param
	byName map[string]*Param
}

// NewParamSet returns an empty registry.
func NewParamSet() *ParamSet {
	return &ParamSet{byName: make(map[string]*Param)}
}

// New allocates and registers a parameter. Names must be unique.
func (s *ParamSet) New(name string, rows, cols int) *Param {
	if _, exists := s.byName[name]; exists {
		panic("nn: duplicate parameter " + name)
	}
	p := NewParam(name, rows, cols)
	s.params = append(s.params, p)
	s.byName[name] = p
	return p
}

// All returns the parameters in registration order.
func (s *ParamSet) All() []*Param {
	return s.params
}

// Get looks up a parameter by name.
func (s *ParamSet) Get(name string) (*Param, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Names returns the sorted parameter names.
func (s *ParamSet) Names() []string {
	names := make([]string, 0, len(s.params))
	for _, p := range s.params {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of scalars over all parameters.
func (s *ParamSet) Count() int {
	n := 0
	for _, p := range s.params {
		n += p.Size()
	}
	return n
}

// ZeroGrad clears every gradient accumulator.
func (s *ParamSet) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

// GradNorm returns the global L2 norm of all gradients.
func (s *ParamSet) GradNorm() float64 {
	sum := 0.0
	for _, p := range s.params {
		g := p.GradData()
		sum += floats.Dot(g, g)
	}
	return math.Sqrt(sum)
}

// ClipGradNorm rescales all gradients so that their global norm does not exceed
// maxNorm. It returns the norm before clipping. maxNorm <= 0 disables clipping.
func (s *ParamSet) ClipGradNorm(maxNorm float64) float64 {
	norm := s.GradNorm()
	if maxNorm <= 0 || norm <= maxNorm {
		return norm
	}
	scale := maxNorm / norm
	for _, p := range s.params {
		floats.Scale(scale, p.GradData())
	}
	return norm
}

// Snapshot copies every weight. The result can be handed back to Restore.
func (s *ParamSet) Snapshot() map[string][]float64 {
	snap := make(map[string][]float64, len(s.params))
	for _, p := range s.params {
		snap[p.Name] = append([]float64(nil), p.Data()...)
	}
	return snap
}

// Restore copies weights from a snapshot taken on a set with the same layout.
func (s *ParamSet) Restore(snap map[string][]float64) error {
	for _, p := range s.params {
		data, ok := snap[p.Name]
		if !ok {
			return errors.Errorf("snapshot is missing parameter %q", p.Name)
		}
		if len(data) != p.Size() {
			return errors.Errorf("snapshot parameter %q has %d values, want %d", p.Name, len(data), p.Size())
		}
		copy(p.Data(), data)
	}
	return nil
}

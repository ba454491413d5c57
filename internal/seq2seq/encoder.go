package seq2seq

import (
	"math/rand"

	"codeberg.org/snonux/kumajala/internal/nn"
	"codeberg.org/snonux/kumajala/internal/vocab"
)

// Encoder reads a source sequence with a forward and a backward LSTM over
// shared embeddings.
type Encoder struct {
	Embed *nn.Embedding
	Fwd   *nn.LSTM
	Bwd   *nn.LSTM
	Units int
}

// EncoderTrace is the forward state of one encoded sequence.
type EncoderTrace struct {
	Src   []int
	Mask  []bool // true for real tokens
	Input [][]float64
	Drop  [][]float64

	fwd []*nn.LSTMStep // nil at padded positions
	bwd []*nn.LSTMStep

	// Outputs holds [h_fwd; h_bwd] per position, zero where padded.
	Outputs [][]float64
	// H and C are the summary state [fwd_last; bwd_first].
	H []float64
	C []float64
}

func newEncoder(ps *nn.ParamSet, vocabSize, embDim, units int, rng *rand.Rand) *Encoder {
	return &Encoder{
		Embed: nn.NewEmbedding(ps, "encoder.embedding", vocabSize, embDim, rng),
		Fwd:   nn.NewLSTM(ps, "encoder.forward", embDim, units, rng),
		Bwd:   nn.NewLSTM(ps, "encoder.backward", embDim, units, rng),
		Units: units,
	}
}

// Forward encodes src. A non-nil rng enables dropout on the embeddings.
func (e *Encoder) Forward(src []int, rng *rand.Rand, dropout float64) *EncoderTrace {
	n := len(src)
	u := e.Units
	tr := &EncoderTrace{
		Src:     src,
		Mask:    make([]bool, n),
		Input:   make([][]float64, n),
		Drop:    make([][]float64, n),
		fwd:     make([]*nn.LSTMStep, n),
		bwd:     make([]*nn.LSTMStep, n),
		Outputs: make([][]float64, n),
	}
	for t, id := range src {
		tr.Outputs[t] = make([]float64, 2*u)
		if id == vocab.PadID {
			continue
		}
		tr.Mask[t] = true
		x := e.Embed.Lookup(id)
		tr.Drop[t] = nn.DropoutMask(rng, len(x), dropout)
		nn.ApplyMask(x, tr.Drop[t])
		tr.Input[t] = x
	}

	h, c := make([]float64, u), make([]float64, u)
	for t := 0; t < n; t++ {
		if !tr.Mask[t] {
			continue
		}
		s := e.Fwd.Step(tr.Input[t], h, c)
		tr.fwd[t] = s
		h, c = s.H, s.C
		copy(tr.Outputs[t][:u], h)
	}
	hf, cf := h, c

	h, c = make([]float64, u), make([]float64, u)
	for t := n - 1; t >= 0; t-- {
		if !tr.Mask[t] {
			continue
		}
		s := e.Bwd.Step(tr.Input[t], h, c)
		tr.bwd[t] = s
		h, c = s.H, s.C
		copy(tr.Outputs[t][u:], h)
	}

	tr.H = nn.Concat(hf, h)
	tr.C = nn.Concat(cf, c)
	return tr
}

// Backward propagates gradients on the per-position outputs and on the
// summary state back through both directions into the embeddings.
func (e *Encoder) Backward(tr *EncoderTrace, dOutputs [][]float64, dH, dC []float64) {
	n := len(tr.Src)
	u := e.Units
	dInput := make([][]float64, n)

	dh := append([]float64(nil), dH[:u]...)
	dc := append([]float64(nil), dC[:u]...)
	for t := n - 1; t >= 0; t-- {
		if !tr.Mask[t] {
			continue
		}
		addTo(dh, dOutputs[t][:u])
		var dx []float64
		dx, dh, dc = e.Fwd.Backward(tr.fwd[t], dh, dc)
		dInput[t] = dx
	}

	dh = append([]float64(nil), dH[u:]...)
	dc = append([]float64(nil), dC[u:]...)
	for t := 0; t < n; t++ {
		if !tr.Mask[t] {
			continue
		}
		addTo(dh, dOutputs[t][u:])
		var dx []float64
		dx, dh, dc = e.Bwd.Backward(tr.bwd[t], dh, dc)
		addTo(dInput[t], dx)
	}

	for t := 0; t < n; t++ {
		if !tr.Mask[t] {
			continue
		}
		nn.ApplyMask(dInput[t], tr.Drop[t])
		e.Embed.Accumulate(tr.Src[t], dInput[t])
	}
}

func addTo(dst, src []float64) {
	for i, v := range src {
		dst[i] += v
	}
}

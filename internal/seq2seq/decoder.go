package seq2seq

import (
	"math/rand"

	"codeberg.org/snonux/kumajala/internal/nn"
)

// Decoder produces one target token distribution per step, attending over the
// encoder outputs with its previous hidden state.
type Decoder struct {
	Embed *nn.Embedding
	Attn  *Attention
	Cell  *nn.LSTM
	Out   *nn.Linear
	Units int
}

// DecoderStep caches one decoding step.
type DecoderStep struct {
	Token  int
	Attn   *AttentionStep
	Drop   []float64
	Cell   *nn.LSTMStep
	Logits []float64
}

// H returns the hidden state after the step.
func (s *DecoderStep) H() []float64 { return s.Cell.H }

// C returns the cell state after the step.
func (s *DecoderStep) C() []float64 { return s.Cell.C }

func newDecoder(ps *nn.ParamSet, vocabSize, embDim, units, valueDim, attnUnits int, rng *rand.Rand) *Decoder {
	return &Decoder{
		Embed: nn.NewEmbedding(ps, "decoder.embedding", vocabSize, embDim, rng),
		Attn:  newAttention(ps, units, valueDim, attnUnits, rng),
		Cell:  nn.NewLSTM(ps, "decoder.lstm", valueDim+embDim, units, rng),
		Out:   nn.NewLinear(ps, "decoder.output", units, vocabSize, rng),
		Units: units,
	}
}

// Step feeds token with state (h, c). A non-nil rng enables dropout on the
// token embedding.
func (d *Decoder) Step(k *Keys, token int, h, c []float64, rng *rand.Rand, dropout float64) *DecoderStep {
	att := d.Attn.Forward(k, h)

	emb := d.Embed.Lookup(token)
	drop := nn.DropoutMask(rng, len(emb), dropout)
	nn.ApplyMask(emb, drop)

	cell := d.Cell.Step(nn.Concat(att.Context, emb), h, c)
	return &DecoderStep{
		Token:  token,
		Attn:   att,
		Drop:   drop,
		Cell:   cell,
		Logits: d.Out.Forward(cell.H),
	}
}

// Backward propagates dLogits plus the gradients flowing into the step's
// output state, and returns the gradients for the incoming state.
func (d *Decoder) Backward(k *Keys, s *DecoderStep, dLogits, dh, dc []float64, dProj, dValues [][]float64) ([]float64, []float64) {
	dhOut := d.Out.Backward(s.Cell.H, dLogits)
	addTo(dhOut, dh)

	dx, dhPrev, dcPrev := d.Cell.Backward(s.Cell, dhOut, dc)
	ctxDim := len(s.Attn.Context)
	dCtx, dEmb := dx[:ctxDim], dx[ctxDim:]

	nn.ApplyMask(dEmb, s.Drop)
	d.Embed.Accumulate(s.Token, dEmb)

	dq := d.Attn.Backward(k, s.Attn, dCtx, dProj, dValues)
	addTo(dhPrev, dq)
	return dhPrev, dcPrev
}

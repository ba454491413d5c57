package seq2seq

import (
	"math/rand"

	"github.com/pkg/errors"

	"codeberg.org/snonux/kumajala/internal/nn"
	"codeberg.org/snonux/kumajala/internal/vocab"
)

// Model is a BiLSTM encoder, Bahdanau attention and an LSTM decoder joined by
// a learned bridge from the encoder summary to the decoder initial state.
//
// Weights are only written during training. Once training is done or the
// model was loaded from an artifact, Generate may be called concurrently.
type Model struct {
	Config       Config
	SrcVocabSize int
	TgtVocabSize int
	Params       *nn.ParamSet

	Encoder *Encoder
	Decoder *Decoder
	BridgeH *nn.Linear
	BridgeC *nn.Linear

	dropoutRNG *rand.Rand
}

// New builds a freshly initialised model. rng seeds both the weights and the
// dropout masks used by Forward in training mode.
func New(cfg Config, srcVocabSize, tgtVocabSize int, rng *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if srcVocabSize <= vocab.UnknownID || tgtVocabSize <= vocab.UnknownID {
		return nil, errors.Errorf("vocabulary sizes %d/%d do not cover the reserved tokens", srcVocabSize, tgtVocabSize)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	ps := nn.NewParamSet()
	valueDim := 2 * cfg.EncoderUnits
	m := &Model{
		Config:       cfg,
		SrcVocabSize: srcVocabSize,
		TgtVocabSize: tgtVocabSize,
		Params:       ps,
		Encoder:      newEncoder(ps, srcVocabSize, cfg.EmbeddingDim, cfg.EncoderUnits, rng),
		Decoder:      newDecoder(ps, tgtVocabSize, cfg.EmbeddingDim, cfg.DecoderUnits, valueDim, cfg.AttentionUnits, rng),
		BridgeH:      nn.NewLinear(ps, "bridge.h", valueDim, cfg.DecoderUnits, rng),
		BridgeC:      nn.NewLinear(ps, "bridge.c", valueDim, cfg.DecoderUnits, rng),
		dropoutRNG:   rand.New(rand.NewSource(rng.Int63())),
	}
	return m, nil
}

// Trace is everything a teacher-forced forward pass needs for Backward.
type Trace struct {
	Enc     *EncoderTrace
	Keys    *Keys
	H0, C0  []float64
	Steps   []*DecoderStep
	Targets []int
}

// Logits returns the per-step output logits, aligned with Targets.
func (tr *Trace) Logits() [][]float64 {
	out := make([][]float64, len(tr.Steps))
	for i, s := range tr.Steps {
		out[i] = s.Logits
	}
	return out
}

// encode runs the encoder and the bridge.
func (m *Model) encode(src []int, rng *rand.Rand, dropout float64) (*EncoderTrace, *Keys, []float64, []float64) {
	enc := m.Encoder.Forward(src, rng, dropout)
	keys := m.Decoder.Attn.Keys(enc.Outputs, enc.Mask)
	return enc, keys, m.BridgeH.Forward(enc.H), m.BridgeC.Forward(enc.C)
}

// Forward runs teacher forcing: the decoder is fed tgt[:len-1] and its logits
// line up with tgt[1:]. With train set dropout is active.
func (m *Model) Forward(src, tgt []int, train bool) (*Trace, error) {
	if len(src) == 0 {
		return nil, errors.New("empty source sequence")
	}
	if len(tgt) < 2 {
		return nil, errors.Errorf("target sequence needs at least 2 tokens, got %d", len(tgt))
	}
	if err := checkIDs(src, m.SrcVocabSize); err != nil {
		return nil, errors.Wrap(err, "source")
	}
	if err := checkIDs(tgt, m.TgtVocabSize); err != nil {
		return nil, errors.Wrap(err, "target")
	}

	var rng *rand.Rand
	dropout := 0.0
	if train {
		rng, dropout = m.dropoutRNG, m.Config.Dropout
	}

	enc, keys, h, c := m.encode(src, rng, dropout)
	tr := &Trace{Enc: enc, Keys: keys, H0: h, C0: c, Targets: tgt[1:]}
	for _, tok := range tgt[:len(tgt)-1] {
		s := m.Decoder.Step(keys, tok, h, c, rng, dropout)
		tr.Steps = append(tr.Steps, s)
		h, c = s.H(), s.C()
	}
	return tr, nil
}

// Backward accumulates the gradient of a loss with the given per-step logit
// gradients into every parameter. Gradients add up across calls until the
// parameter set is zeroed.
func (m *Model) Backward(tr *Trace, dLogits [][]float64) error {
	if len(dLogits) != len(tr.Steps) {
		return errors.Errorf("got %d logit gradients for %d steps", len(dLogits), len(tr.Steps))
	}

	n := len(tr.Enc.Src)
	valueDim := 2 * m.Config.EncoderUnits
	dProj := make([][]float64, n)
	dValues := make([][]float64, n)
	for t := 0; t < n; t++ {
		dProj[t] = make([]float64, m.Config.AttentionUnits)
		dValues[t] = make([]float64, valueDim)
	}

	dh := make([]float64, m.Config.DecoderUnits)
	dc := make([]float64, m.Config.DecoderUnits)
	for i := len(tr.Steps) - 1; i >= 0; i-- {
		dh, dc = m.Decoder.Backward(tr.Keys, tr.Steps[i], dLogits[i], dh, dc, dProj, dValues)
	}

	m.Decoder.Attn.KeysBackward(tr.Keys, dProj, dValues)
	dEncH := m.BridgeH.Backward(tr.Enc.H, dh)
	dEncC := m.BridgeC.Backward(tr.Enc.C, dc)
	m.Encoder.Backward(tr.Enc, dValues, dEncH, dEncC)
	return nil
}

func checkIDs(ids []int, size int) error {
	for _, id := range ids {
		if id < 0 || id >= size {
			return errors.Errorf("token id %d outside vocabulary of size %d", id, size)
		}
	}
	return nil
}

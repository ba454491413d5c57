package seq2seq

import (
	"time"

	"k8s.io/klog/v2"

	"codeberg.org/snonux/kumajala/internal/vocab"
)

// Translator binds a model to the vocabularies it was trained with.
type Translator struct {
	Model   *Model
	Source  *vocab.Vocabulary
	Target  *vocab.Vocabulary
	Options GenerateOptions
}

// NewTranslator checks that the vocabularies fit the model's embedding and
// output sizes.
func NewTranslator(m *Model, src, tgt *vocab.Vocabulary, opts GenerateOptions) (*Translator, error) {
	if src.Size() != m.SrcVocabSize {
		return nil, &VocabularyMismatchError{Side: "source", Expected: sizeString(m.SrcVocabSize), Actual: sizeString(src.Size())}
	}
	if tgt.Size() != m.TgtVocabSize {
		return nil, &VocabularyMismatchError{Side: "target", Expected: sizeString(m.TgtVocabSize), Actual: sizeString(tgt.Size())}
	}
	return &Translator{Model: m, Source: src, Target: tgt, Options: opts}, nil
}

// Language returns the target language.
func (t *Translator) Language() string {
	return t.Target.Language
}

// Translate decodes text and returns the translation, the per-step attention
// weights over the source tokens and the time spent.
func (t *Translator) Translate(text string) (string, [][]float64, time.Duration) {
	start := time.Now()
	src := t.Source.Encode(text, true)
	gen := t.Model.Generate(src, t.Options)
	out := t.Target.Decode(gen.IDs, true)
	elapsed := time.Since(start)

	klog.V(2).Infof("neural %s: %q -> %q (%d steps, %v)", t.Language(), text, out, len(gen.Attention), elapsed)
	return out, gen.Attention, elapsed
}

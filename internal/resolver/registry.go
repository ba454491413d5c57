package resolver

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"k8s.io/klog/v2"

	"codeberg.org/snonux/kumajala/internal/language"
	"codeberg.org/snonux/kumajala/internal/seq2seq"
)

// Translator is a loaded neural model for one target language.
type Translator interface {
	Translate(text string) (string, [][]float64, time.Duration)
	Language() string
}

// Registry holds the neural translators per language. It is filled before
// serving starts and only read afterwards.
type Registry struct {
	translators map[string]Translator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{translators: make(map[string]Translator)}
}

// Register adds or replaces the translator for lang.
func (r *Registry) Register(lang string, t Translator) {
	r.translators[lang] = t
}

// Get returns the translator for lang.
func (r *Registry) Get(lang string) (Translator, bool) {
	t, ok := r.translators[lang]
	return t, ok
}

// Languages returns the languages with a loaded model, sorted.
func (r *Registry) Languages() []string {
	langs := make([]string, 0, len(r.translators))
	for lang := range r.translators {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// LoadRegistry loads the artifact of every supported language found under
// modelsDir. Languages without an artifact are skipped. A language whose
// artifact is broken or mismatches its vocabulary is skipped too, and its
// error is part of the returned error; the registry is usable either way.
func LoadRegistry(modelsDir string, opts seq2seq.GenerateOptions) (*Registry, error) {
	r := NewRegistry()
	var errs []error
	for _, lang := range language.Codes() {
		t, err := seq2seq.LoadArtifact(seq2seq.ArtifactDir(modelsDir, lang), lang, opts)
		var unavailable *seq2seq.ModelUnavailableError
		switch {
		case errors.As(err, &unavailable):
			klog.V(1).Infof("no %s model: %v", lang, err)
		case err != nil:
			klog.Errorf("refusing to serve %s model: %v", lang, err)
			errs = append(errs, fmt.Errorf("%s: %w", lang, err))
		default:
			r.Register(lang, t)
		}
	}
	return r, errors.Join(errs...)
}

package seq2seq

import "fmt"

// ModelUnavailableError is returned when no trained artifact exists for a
// language.
type ModelUnavailableError struct {
	Language string
	Path     string
	Err      error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no trained model for %s at %s: %v", e.Language, e.Path, e.Err)
	}
	return fmt.Sprintf("no trained model for %s at %s", e.Language, e.Path)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// VocabularyMismatchError is returned when an artifact's weights were trained
// against different vocabularies than the ones stored next to it.
type VocabularyMismatchError struct {
	Side     string // "source" or "target"
	Expected string
	Actual   string
}

func (e *VocabularyMismatchError) Error() string {
	return fmt.Sprintf("%s vocabulary mismatch: model expects %s, found %s", e.Side, e.Expected, e.Actual)
}

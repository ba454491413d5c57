package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGenerator mocks the generative translation service. Translations
// are keyed by "text|lang"; unknown keys fail with Err or a generic error.
type MockGenerator struct {
	Translations map[string]string
	Errors       map[string]error
	Err          error

	mu    sync.Mutex
	calls []string
}

// Name returns "mock".
func (m *MockGenerator) Name() string {
	return "mock"
}

// Generate mocks a translation request
func (m *MockGenerator) Generate(ctx context.Context, text, lang string) (string, error) {
	key := text + "|" + lang

	m.mu.Lock()
	m.calls = append(m.calls, key)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err, ok := m.Errors[key]; ok {
		return "", err
	}
	if out, ok := m.Translations[key]; ok {
		return out, nil
	}
	if m.Err != nil {
		return "", m.Err
	}
	return "", fmt.Errorf("no mock translation for %q", key)
}

// Calls returns the "text|lang" keys requested so far.
func (m *MockGenerator) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockTranslator mocks a trained neural model. Every step attends to the
// first source token only, which the confidence estimator scores as certain.
type MockTranslator struct {
	Lang         string
	Translations map[string]string
	Elapsed      time.Duration
}

// Language returns the target language.
func (m *MockTranslator) Language() string {
	return m.Lang
}

// Translate returns the canned translation and a sharp attention trace.
func (m *MockTranslator) Translate(text string) (string, [][]float64, time.Duration) {
	out, ok := m.Translations[text]
	if !ok {
		return "", nil, m.Elapsed
	}
	return out, [][]float64{{1, 0, 0}, {1, 0, 0}}, m.Elapsed
}

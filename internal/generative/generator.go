package generative

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/snonux/kumajala/internal/language"
	"k8s.io/klog/v2"
)

const (
	providerOpenAI = "openai"
	providerGemini = "gemini"
	providerNone   = "none"
)

// Generator produces a translation of French text into lang using an
// external generative model.
type Generator interface {
	Generate(ctx context.Context, text, lang string) (string, error)
	Name() string
}

// Config selects and configures the generator.
type Config struct {
	Provider string // "openai", "gemini" or "none"

	OpenAIKey   string
	OpenAIModel string
	GeminiKey   string
	GeminiModel string

	Timeout         time.Duration // per request
	BreakerFailures uint32        // consecutive failures that open the circuit
	BreakerCooldown time.Duration // time the circuit stays open
}

// DefaultConfig returns the default generator configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:        providerOpenAI,
		OpenAIModel:     "gpt-4o-mini",
		GeminiModel:     "gemini-2.0-flash",
		Timeout:         20 * time.Second,
		BreakerFailures: 3,
		BreakerCooldown: 30 * time.Second,
	}
}

// New builds the configured generator wrapped in a circuit breaker. When the
// other provider also has a key it becomes the fallback. Provider "none"
// returns a nil Generator and no error.
func New(ctx context.Context, cfg *Config) (Generator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var primary, secondary Generator
	var err error
	switch cfg.Provider {
	case providerNone, "":
		return nil, nil
	case providerOpenAI:
		if primary, err = NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIModel); err != nil {
			return nil, err
		}
		if cfg.GeminiKey != "" {
			secondary, err = NewGeminiGenerator(ctx, cfg.GeminiKey, cfg.GeminiModel)
		}
	case providerGemini:
		if primary, err = NewGeminiGenerator(ctx, cfg.GeminiKey, cfg.GeminiModel); err != nil {
			return nil, err
		}
		if cfg.OpenAIKey != "" {
			secondary, err = NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIModel)
		}
	default:
		return nil, fmt.Errorf("unknown generator provider: %s", cfg.Provider)
	}
	if err != nil {
		klog.Warningf("fallback generator disabled: %v", err)
		secondary = nil
	}

	gen := Generator(NewBreaker(WithTimeout(primary, cfg.Timeout), cfg.BreakerFailures, cfg.BreakerCooldown))
	if secondary != nil {
		gen = WithFallback(gen, NewBreaker(WithTimeout(secondary, cfg.Timeout), cfg.BreakerFailures, cfg.BreakerCooldown))
	}
	return gen, nil
}

// Prompt is the instruction sent to chat models. Known language codes are
// replaced by their display name and region.
func Prompt(text, lang string) string {
	name := lang
	if info, err := language.Lookup(lang); err == nil {
		name = fmt.Sprintf("%s (%s)", info.Name, info.Region)
		lang = info.Name
	}
	return fmt.Sprintf("Translate the French phrase '%s' into %s. Respond with only the %s translation, nothing else.", text, name, lang)
}

// fallbackGenerator tries primary first and falls back to secondary on error.
type fallbackGenerator struct {
	primary  Generator
	fallback Generator
}

// WithFallback returns a generator that asks fallback when primary fails.
func WithFallback(primary, fallback Generator) Generator {
	return &fallbackGenerator{primary: primary, fallback: fallback}
}

func (g *fallbackGenerator) Generate(ctx context.Context, text, lang string) (string, error) {
	out, err := g.primary.Generate(ctx, text, lang)
	if err == nil {
		return out, nil
	}
	klog.Warningf("primary generator (%s) failed: %v; falling back to %s", g.primary.Name(), err, g.fallback.Name())
	return g.fallback.Generate(ctx, text, lang)
}

func (g *fallbackGenerator) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", g.primary.Name(), g.fallback.Name())
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

// WithTimeout bounds every call to next. A zero timeout returns next as is.
func WithTimeout(next Generator, timeout time.Duration) Generator {
	if timeout <= 0 {
		return next
	}
	return &timeoutGenerator{next: next, timeout: timeout}
}

func (g *timeoutGenerator) Generate(ctx context.Context, text, lang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.next.Generate(ctx, text, lang)
}

func (g *timeoutGenerator) Name() string {
	return g.next.Name()
}

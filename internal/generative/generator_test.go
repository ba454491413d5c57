package generative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"google.golang.org/genai"
)

// fakeGenerator returns queued results in order, repeating the last one.
type fakeGenerator struct {
	name    string
	mu      sync.Mutex
	results []fakeResult
	calls   int
}

type fakeResult struct {
	text string
	err  error
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(ctx context.Context, text, lang string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i].text, f.results[i].err
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func rateLimited() error {
	return newServiceError("fake", http.StatusTooManyRequests, errors.New("quota exceeded"))
}

func TestNewOpenAIGenerator_NoAPIKey(t *testing.T) {
	_, err := NewOpenAIGenerator("", "")
	if err == nil {
		t.Fatal("Expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "OpenAI API key not found") {
		t.Errorf("Expected 'OpenAI API key not found' error, got: %v", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("Missing key should count as unavailable")
	}
}

func TestNewOpenAIGenerator_DefaultModel(t *testing.T) {
	gen, err := NewOpenAIGenerator("test-api-key", "")
	if err != nil {
		t.Fatalf("NewOpenAIGenerator failed: %v", err)
	}
	if gen.model != openai.GPT4oMini {
		t.Errorf("Expected model %s, got %s", openai.GPT4oMini, gen.model)
	}
	if gen.client == nil {
		t.Error("OpenAI client not initialized")
	}
	if gen.Name() != "openai" {
		t.Errorf("Expected name 'openai', got %s", gen.Name())
	}
}

func TestNewGeminiGenerator_NoAPIKey(t *testing.T) {
	_, err := NewGeminiGenerator(context.Background(), "", "")
	if err == nil || !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected unavailable error, got %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantNil  bool
		wantErr  bool
		wantName string
	}{
		{"none", Config{Provider: "none"}, true, false, ""},
		{"empty provider", Config{}, true, false, ""},
		{"unknown", Config{Provider: "claude"}, false, true, ""},
		{"openai without key", Config{Provider: "openai"}, false, true, ""},
		{"openai", Config{Provider: "openai", OpenAIKey: "k"}, false, false, "openai"},
		{"openai with gemini fallback", Config{Provider: "openai", OpenAIKey: "k", GeminiKey: "g"}, false, false, "openai (fallback: gemini)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := New(context.Background(), &tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (gen == nil) != tt.wantNil {
				t.Fatalf("New() generator = %v, wantNil %v", gen, tt.wantNil)
			}
			if gen != nil && gen.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", gen.Name(), tt.wantName)
			}
		})
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt("bonjour", "bété")
	if !strings.Contains(p, "'bonjour'") || !strings.Contains(p, "Bété (Côte d'Ivoire)") {
		t.Errorf("Prompt missing phrase or language: %s", p)
	}
}

func TestCleanResponse(t *testing.T) {
	tests := map[string]string{
		"Akwaba":          "Akwaba",
		"  \"Akwaba\"\n":  "Akwaba",
		"'Mo ho'":         "Mo ho",
		"« Ne y windga »": "Ne y windga",
		"   ":             "",
	}
	for in, want := range tests {
		if got := cleanResponse(in); got != want {
			t.Errorf("cleanResponse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassifyOpenAI(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantStatus      int
		wantUnavailable bool
		wantRateLimited bool
	}{
		{"quota", &openai.APIError{HTTPStatusCode: 429, Message: "quota"}, 429, true, true},
		{"server", &openai.APIError{HTTPStatusCode: 503}, 503, true, false},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, 400, false, false},
		{"request error", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, 502, true, false},
		{"transport", errors.New("connection refused"), 0, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyOpenAI(tt.err)
			var gerr *GenerativeServiceError
			if !errors.As(err, &gerr) {
				t.Fatalf("Expected *GenerativeServiceError, got %T", err)
			}
			if gerr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", gerr.StatusCode, tt.wantStatus)
			}
			if errors.Is(err, ErrUnavailable) != tt.wantUnavailable {
				t.Errorf("errors.Is(ErrUnavailable) = %v, want %v", !tt.wantUnavailable, tt.wantUnavailable)
			}
			if IsRateLimited(err) != tt.wantRateLimited {
				t.Errorf("IsRateLimited = %v, want %v", !tt.wantRateLimited, tt.wantRateLimited)
			}
			if !errors.Is(err, tt.err) {
				t.Error("Original error not wrapped")
			}
		})
	}
}

func TestClassifyGemini(t *testing.T) {
	err := classifyGemini(fmt.Errorf("call: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}))
	if !IsRateLimited(err) {
		t.Errorf("Expected rate limited error, got %v", err)
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Error("Expected unavailable error")
	}
}

func TestWithFallback(t *testing.T) {
	primary := &fakeGenerator{name: "primary", results: []fakeResult{{err: rateLimited()}}}
	secondary := &fakeGenerator{name: "secondary", results: []fakeResult{{text: "Akwaba"}}}

	gen := WithFallback(primary, secondary)
	out, err := gen.Generate(context.Background(), "bonjour", "bété")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out != "Akwaba" {
		t.Errorf("Expected fallback translation, got %q", out)
	}
	if primary.Calls() != 1 || secondary.Calls() != 1 {
		t.Errorf("Expected one call each, got %d and %d", primary.Calls(), secondary.Calls())
	}

	primary.results = []fakeResult{{text: "Mo ho"}}
	out, _ = gen.Generate(context.Background(), "bonjour", "baoulé")
	if out != "Mo ho" || secondary.Calls() != 1 {
		t.Errorf("Fallback should not be called when primary succeeds")
	}
}

func TestWithTimeout(t *testing.T) {
	slow := &blockingGenerator{}
	gen := WithTimeout(slow, 10*time.Millisecond)
	_, err := gen.Generate(context.Background(), "bonjour", "bété")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	if WithTimeout(slow, 0) != Generator(slow) {
		t.Error("Zero timeout should return the generator unchanged")
	}
}

type blockingGenerator struct{}

func (blockingGenerator) Name() string { return "blocking" }

func (blockingGenerator) Generate(ctx context.Context, text, lang string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	failing := &fakeGenerator{name: "flaky", results: []fakeResult{{err: newServiceError("flaky", 503, errors.New("down"))}}}
	b := NewBreaker(failing, 2, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := b.Generate(context.Background(), "bonjour", "bété"); err == nil {
			t.Fatal("Expected failure")
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("Expected open circuit, got %s", b.State())
	}

	_, err := b.Generate(context.Background(), "bonjour", "bété")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Open circuit should report unavailable, got %v", err)
	}
	if failing.Calls() != 2 {
		t.Errorf("Open circuit should not call the service, got %d calls", failing.Calls())
	}
}

func TestBreakerPassesThrough(t *testing.T) {
	ok := &fakeGenerator{name: "ok", results: []fakeResult{{text: "Barika"}}}
	b := NewBreaker(ok, 0, 0)
	out, err := b.Generate(context.Background(), "merci", "mooré")
	if err != nil || out != "Barika" {
		t.Errorf("Generate() = %q, %v", out, err)
	}
	if b.Name() != "ok" {
		t.Errorf("Name() = %q", b.Name())
	}
}

func TestRetrying(t *testing.T) {
	tests := []struct {
		name      string
		results   []fakeResult
		attempts  int
		want      string
		wantErr   bool
		wantCalls int
	}{
		{"success", []fakeResult{{text: "Akpé"}}, 3, "Akpé", false, 1},
		{"rate limited then success", []fakeResult{{err: rateLimited()}, {text: "Akpé"}}, 3, "Akpé", false, 2},
		{"always rate limited", []fakeResult{{err: rateLimited()}}, 3, "", true, 3},
		{"other error not retried", []fakeResult{{err: errors.New("boom")}}, 3, "", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeGenerator{name: "fake", results: tt.results}
			r := NewRetrying(fake, tt.attempts, time.Millisecond)
			out, err := r.Generate(context.Background(), "merci", "agni")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if out != tt.want {
				t.Errorf("Generate() = %q, want %q", out, tt.want)
			}
			if fake.Calls() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", fake.Calls(), tt.wantCalls)
			}
		})
	}
}

// Enrichment stacks Retrying on top of the cached, breaker-guarded generator.
func TestRetryingThroughBreaker(t *testing.T) {
	fake := &fakeGenerator{name: "fake", results: []fakeResult{
		{err: rateLimited()}, {err: rateLimited()}, {err: rateLimited()}, {text: "Akpé"},
	}}
	breaker := NewBreaker(WithTimeout(fake, time.Second), 3, time.Hour)
	gen := NewRetrying(NewCache(breaker), 4, time.Millisecond)

	out, err := gen.Generate(context.Background(), "merci", "bété")
	if err != nil || out != "Akpé" {
		t.Fatalf("Generate() = %q, %v", out, err)
	}
	if fake.Calls() != 4 {
		t.Errorf("Expected all 4 attempts to reach the service, got %d", fake.Calls())
	}
	if breaker.State() != gobreaker.StateClosed {
		t.Errorf("Rate limits must not open the circuit, got %s", breaker.State())
	}

	out, err = gen.Generate(context.Background(), "bonjour", "bété")
	if err != nil || out != "Akpé" {
		t.Fatalf("Next phrase: Generate() = %q, %v", out, err)
	}
	if fake.Calls() != 5 {
		t.Errorf("Expected the next phrase to reach the service, got %d calls", fake.Calls())
	}
}

func TestBreakerIgnoresRateLimits(t *testing.T) {
	fake := &fakeGenerator{name: "fake", results: []fakeResult{{err: rateLimited()}}}
	b := NewBreaker(fake, 2, time.Hour)
	for i := 0; i < 5; i++ {
		if _, err := b.Generate(context.Background(), "merci", "agni"); !IsRateLimited(err) {
			t.Fatalf("Expected rate-limit error, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("Expected closed circuit, got %s", b.State())
	}
}

func TestRetryingHonoursContext(t *testing.T) {
	fake := &fakeGenerator{name: "fake", results: []fakeResult{{err: rateLimited()}}}
	r := NewRetrying(fake, 3, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Generate(ctx, "merci", "agni")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestCache(t *testing.T) {
	fake := &fakeGenerator{name: "fake", results: []fakeResult{{err: errors.New("boom")}, {text: "Kan na"}}}
	c := NewCache(fake)

	if _, err := c.Generate(context.Background(), "au revoir", "bété"); err == nil {
		t.Fatal("Expected first call to fail")
	}
	if c.Len() != 0 {
		t.Error("Errors must not be cached")
	}

	for i := 0; i < 3; i++ {
		out, err := c.Generate(context.Background(), "au revoir", "bété")
		if err != nil || out != "Kan na" {
			t.Fatalf("Generate() = %q, %v", out, err)
		}
	}
	if fake.Calls() != 2 {
		t.Errorf("Expected 2 service calls, got %d", fake.Calls())
	}

	_, _ = c.Generate(context.Background(), "au revoir", "baoulé")
	if c.Len() != 2 {
		t.Errorf("Expected 2 cached entries, got %d", c.Len())
	}
}

func TestOpenAIGenerator_Integration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: OPENAI_API_KEY not set")
	}

	gen, err := NewOpenAIGenerator(apiKey, "")
	if err != nil {
		t.Fatalf("NewOpenAIGenerator failed: %v", err)
	}
	translation, err := gen.Generate(context.Background(), "bonjour", "baoulé")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if translation == "" {
		t.Error("Got empty translation")
	}
	t.Logf("Translation of 'bonjour': %s", translation)
}

func TestGeminiGenerator_Integration(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: GEMINI_API_KEY not set")
	}

	gen, err := NewGeminiGenerator(context.Background(), apiKey, "")
	if err != nil {
		t.Fatalf("NewGeminiGenerator failed: %v", err)
	}
	translation, err := gen.Generate(context.Background(), "merci", "mooré")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	t.Logf("Translation of 'merci': %s", translation)
}

package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/snonux/kumajala/internal/cli"
	"codeberg.org/snonux/kumajala/internal/corpus"
	"codeberg.org/snonux/kumajala/internal/dictionary"
	"codeberg.org/snonux/kumajala/internal/generative"
	"codeberg.org/snonux/kumajala/internal/language"
	"codeberg.org/snonux/kumajala/internal/models"
	"codeberg.org/snonux/kumajala/internal/resolver"
)

// Processor runs the sub commands. Its collaborators are opened on first
// use so that, for example, listing models never touches the dictionary.
type Processor struct {
	flags *cli.Flags

	store         dictionary.Store
	registry      *resolver.Registry
	generator     generative.Generator
	generatorInit bool
}

// NewProcessor creates a new processor
func NewProcessor(flags *cli.Flags) *Processor {
	return &Processor{flags: flags}
}

// Close releases the dictionary store.
func (p *Processor) Close() error {
	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}

// ListModels prints the trained models and, with an OpenAI key, the chat
// models the generative fallback can use.
func (p *Processor) ListModels(ctx context.Context) error {
	lister := models.NewLister(cli.GetOpenAIKey(), p.flags.ModelsDir)
	if err := lister.ListLocalModels(); err != nil {
		return err
	}
	if cli.GetOpenAIKey() == "" {
		fmt.Println("\nSet OPENAI_API_KEY to also list the available OpenAI chat models")
		return nil
	}
	return lister.ListAvailableModels(ctx)
}

func (p *Processor) openStore() (dictionary.Store, error) {
	if p.store != nil {
		return p.store, nil
	}
	if p.flags.DictionaryPath != "" {
		if err := os.MkdirAll(filepath.Dir(p.flags.DictionaryPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create dictionary directory: %w", err)
		}
	}
	s, err := dictionary.Open(p.flags.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	p.store = s
	return s, nil
}

func (p *Processor) loadRegistry() *resolver.Registry {
	if p.registry != nil {
		return p.registry
	}
	reg, err := resolver.LoadRegistry(p.flags.ModelsDir, p.flags.GenerateOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: some models could not be loaded: %v\n", err)
	}
	p.registry = reg
	return reg
}

// loadGenerator returns the configured generative service or nil when it is
// disabled or cannot be set up.
func (p *Processor) loadGenerator(ctx context.Context) generative.Generator {
	if p.generatorInit {
		return p.generator
	}
	p.generatorInit = true

	gen, err := generative.New(ctx, p.flags.GeneratorConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: generative fallback disabled: %v\n", err)
		return nil
	}
	if gen != nil {
		p.generator = generative.NewCache(gen)
	}
	return p.generator
}

func (p *Processor) newResolver(ctx context.Context) (*resolver.Resolver, error) {
	store, err := p.openStore()
	if err != nil {
		return nil, err
	}
	return resolver.New(store, p.loadRegistry(), p.loadGenerator(ctx), p.flags.ResolverConfig()), nil
}

// targetLanguage returns the normalised --language.
func (p *Processor) targetLanguage() (string, error) {
	if p.flags.Language == "" {
		return "", fmt.Errorf("no target language given, use --language (one of %v)", language.Codes())
	}
	return language.Normalize(p.flags.Language)
}

// languages returns --language when given, all supported languages
// otherwise.
func (p *Processor) languages() ([]string, error) {
	if p.flags.Language == "" {
		return language.Codes(), nil
	}
	lang, err := p.targetLanguage()
	if err != nil {
		return nil, err
	}
	return []string{lang}, nil
}

func (p *Processor) loadCorpus() (*corpus.Corpus, error) {
	if p.flags.CorpusFile == "" {
		return nil, fmt.Errorf("no corpus given, use --corpus")
	}
	c, err := corpus.Load(p.flags.CorpusFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	return c, nil
}

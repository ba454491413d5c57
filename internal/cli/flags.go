package cli

import (
	"codeberg.org/snonux/kumajala/internal/generative"
	"codeberg.org/snonux/kumajala/internal/resolver"
	"codeberg.org/snonux/kumajala/internal/seq2seq"
	"codeberg.org/snonux/kumajala/internal/training"
)

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile        string
	Language       string
	ModelsDir      string
	CorpusFile     string
	DictionaryPath string

	// Translate flags
	BatchFile           string
	ConfidenceThreshold float64
	BeamWidth           int
	MaxLength           int
	StoreGenerated      bool

	// Train flags
	BatchSize       int
	Epochs          int
	LearningRate    float64
	MinLearningRate float64
	Patience        int
	LRPatience      int
	LRFactor        float64
	Augment         int
	Seed            int64
	EmbeddingDim    int
	HiddenUnits     int
	Dropout         float64
	Archive         bool
	Checkpoints     bool

	// Enrich flags
	OutputFile  string
	EnrichLimit int

	// Generative service flags
	Generator   string
	OpenAIModel string
	GeminiModel string
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	tc := training.DefaultConfig()
	mc := seq2seq.DefaultConfig()
	gc := generative.DefaultConfig()

	return &Flags{
		ConfidenceThreshold: resolver.DefaultThreshold,
		BeamWidth:           1,
		MaxLength:           seq2seq.DefaultMaxSteps,

		BatchSize:       tc.BatchSize,
		Epochs:          tc.MaxEpochs,
		LearningRate:    tc.LearningRate,
		MinLearningRate: tc.MinLearningRate,
		Patience:        tc.EarlyStoppingPatience,
		LRPatience:      tc.LRPatience,
		LRFactor:        tc.LRDecayFactor,
		Augment:         tc.AugmentFactor,
		Seed:            tc.Seed,
		EmbeddingDim:    mc.EmbeddingDim,
		HiddenUnits:     mc.EncoderUnits,
		Dropout:         mc.Dropout,

		Generator:   gc.Provider,
		OpenAIModel: gc.OpenAIModel,
		GeminiModel: gc.GeminiModel,
	}
}

// TrainingConfig returns the training hyperparameters selected by the flags.
func (f *Flags) TrainingConfig() training.Config {
	cfg := training.DefaultConfig()
	cfg.BatchSize = f.BatchSize
	cfg.MaxEpochs = f.Epochs
	cfg.LearningRate = f.LearningRate
	cfg.MinLearningRate = f.MinLearningRate
	cfg.EarlyStoppingPatience = f.Patience
	cfg.LRPatience = f.LRPatience
	cfg.LRDecayFactor = f.LRFactor
	cfg.AugmentFactor = f.Augment
	cfg.MaxSequenceLength = f.MaxLength
	cfg.Seed = f.Seed
	return cfg
}

// ModelConfig returns the layer sizes selected by the flags. Encoder,
// decoder and attention share the hidden size.
func (f *Flags) ModelConfig() seq2seq.Config {
	return seq2seq.Config{
		EmbeddingDim:   f.EmbeddingDim,
		EncoderUnits:   f.HiddenUnits,
		DecoderUnits:   f.HiddenUnits,
		AttentionUnits: f.HiddenUnits,
		Dropout:        f.Dropout,
	}
}

// GenerateOptions returns the decoding options selected by the flags.
func (f *Flags) GenerateOptions() seq2seq.GenerateOptions {
	return seq2seq.GenerateOptions{MaxSteps: f.MaxLength, BeamWidth: f.BeamWidth}
}

// GeneratorConfig returns the generative service configuration, with the
// API keys read from the environment or the config file.
func (f *Flags) GeneratorConfig() *generative.Config {
	cfg := generative.DefaultConfig()
	cfg.Provider = f.Generator
	cfg.OpenAIKey = GetOpenAIKey()
	cfg.OpenAIModel = f.OpenAIModel
	cfg.GeminiKey = GetGeminiKey()
	cfg.GeminiModel = f.GeminiModel
	return cfg
}

// ResolverConfig returns the resolver configuration including the per
// language thresholds from the config file.
func (f *Flags) ResolverConfig() resolver.Config {
	return resolver.Config{
		Threshold:      f.ConfidenceThreshold,
		Thresholds:     Thresholds(),
		StoreGenerated: f.StoreGenerated,
	}
}

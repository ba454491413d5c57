package training

import (
	"fmt"
)

// Config holds the training hyperparameters. Model dimensions live in
// seq2seq.Config.
type Config struct {
	BatchSize             int     `json:"batch_size"`
	MaxEpochs             int     `json:"max_epochs"`
	LearningRate          float64 `json:"learning_rate"`
	MinLearningRate       float64 `json:"min_learning_rate"`
	LRPatience            int     `json:"lr_patience"`
	LRDecayFactor         float64 `json:"lr_decay_factor"`
	EarlyStoppingPatience int     `json:"early_stopping_patience"`
	GradClipNorm          float64 `json:"grad_clip_norm"`

	ValidationSplit   float64 `json:"validation_split"`
	TestSplit         float64 `json:"test_split"`
	MaxSequenceLength int     `json:"max_sequence_length"`
	MinFrequency      int     `json:"min_frequency"`

	AugmentFactor    int     `json:"augment_factor"`
	NoiseProbability float64 `json:"noise_probability"`

	Seed int64 `json:"seed"`
}

// DefaultConfig returns the default hyperparameters.
func DefaultConfig() Config {
	return Config{
		BatchSize:             32,
		MaxEpochs:             100,
		LearningRate:          1e-3,
		MinLearningRate:       1e-6,
		LRPatience:            5,
		LRDecayFactor:         0.5,
		EarlyStoppingPatience: 10,
		GradClipNorm:          5,
		ValidationSplit:       0.15,
		TestSplit:             0.15,
		MaxSequenceLength:     50,
		MinFrequency:          1,
		AugmentFactor:         5,
		NoiseProbability:      0.1,
		Seed:                  42,
	}
}

// Validate checks the hyperparameters for values training cannot work with.
func (c Config) Validate() error {
	switch {
	case c.BatchSize < 1:
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.MaxEpochs < 1:
		return fmt.Errorf("max epochs must be positive, got %d", c.MaxEpochs)
	case c.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive, got %g", c.LearningRate)
	case c.MinLearningRate < 0 || c.MinLearningRate > c.LearningRate:
		return fmt.Errorf("min learning rate %g must be in [0, %g]", c.MinLearningRate, c.LearningRate)
	case c.LRDecayFactor <= 0 || c.LRDecayFactor >= 1:
		return fmt.Errorf("learning rate decay factor must be in (0, 1), got %g", c.LRDecayFactor)
	case c.LRPatience < 1 || c.EarlyStoppingPatience < 1:
		return fmt.Errorf("patience values must be positive")
	case c.ValidationSplit < 0 || c.TestSplit < 0 || c.ValidationSplit+c.TestSplit >= 1:
		return fmt.Errorf("validation (%g) and test (%g) splits must leave training data", c.ValidationSplit, c.TestSplit)
	case c.MaxSequenceLength < 3:
		return fmt.Errorf("max sequence length must be at least 3, got %d", c.MaxSequenceLength)
	case c.NoiseProbability < 0 || c.NoiseProbability > 1:
		return fmt.Errorf("noise probability must be in [0, 1], got %g", c.NoiseProbability)
	}
	return nil
}

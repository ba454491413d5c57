package seq2seq

import "github.com/pkg/errors"

// Config fixes the layer sizes of a model. It is written into the artifact
// and must match between training and serving.
type Config struct {
	EmbeddingDim   int     `json:"embedding_dim"`
	EncoderUnits   int     `json:"encoder_units"` // per direction
	DecoderUnits   int     `json:"decoder_units"`
	AttentionUnits int     `json:"attention_units"`
	Dropout        float64 `json:"dropout"`
}

// DefaultConfig returns the production layer sizes.
func DefaultConfig() Config {
	return Config{
		EmbeddingDim:   256,
		EncoderUnits:   512,
		DecoderUnits:   512,
		AttentionUnits: 512,
		Dropout:        0.3,
	}
}

// Validate checks that every dimension is positive and dropout is in [0,1).
func (c Config) Validate() error {
	if c.EmbeddingDim <= 0 || c.EncoderUnits <= 0 || c.DecoderUnits <= 0 || c.AttentionUnits <= 0 {
		return errors.Errorf("invalid model dimensions %+v", c)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return errors.Errorf("dropout must be in [0,1), got %v", c.Dropout)
	}
	return nil
}

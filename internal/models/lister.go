package models

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/kumajala/internal/language"
	"codeberg.org/snonux/kumajala/internal/seq2seq"
)

// LocalModel describes the neural artifact of one target language.
type LocalModel struct {
	Language string
	Dir      string
	Metadata *seq2seq.Metadata // nil when no usable artifact exists
	Err      error             // why the artifact could not be read
}

// Available reports whether a trained artifact was found.
func (m LocalModel) Available() bool {
	return m.Metadata != nil
}

// Lister handles listing local artifacts and available OpenAI models
type Lister struct {
	apiKey    string
	modelsDir string
	client    *openai.Client
}

// NewLister creates a new model lister
func NewLister(apiKey, modelsDir string) *Lister {
	return &Lister{
		apiKey:    apiKey,
		modelsDir: modelsDir,
		client:    openai.NewClient(apiKey),
	}
}

// LocalModels inspects the artifact directory of every supported language.
// A missing directory is not an error; a corrupt artifact is reported in
// LocalModel.Err.
func (l *Lister) LocalModels() []LocalModel {
	var out []LocalModel
	for _, code := range language.Codes() {
		dir := seq2seq.ArtifactDir(l.modelsDir, code)
		m := LocalModel{Language: code, Dir: dir}
		if _, err := os.Stat(filepath.Join(dir, seq2seq.WeightsFile)); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				m.Err = err
			}
			out = append(out, m)
			continue
		}
		m.Metadata, m.Err = seq2seq.ReadMetadata(dir)
		out = append(out, m)
	}
	return out
}

// ListLocalModels prints the trained models found in the models directory.
func (l *Lister) ListLocalModels() error {
	if _, err := os.Stat(l.modelsDir); err != nil {
		fmt.Printf("Models directory %s not found; train a model first\n", l.modelsDir)
		return nil
	}

	fmt.Printf("Neural models in %s:\n", l.modelsDir)
	for _, m := range l.LocalModels() {
		switch {
		case m.Err != nil:
			fmt.Printf("  %-8s unreadable: %v\n", m.Language, m.Err)
		case !m.Available():
			fmt.Printf("  %-8s not trained\n", m.Language)
		default:
			md := m.Metadata
			fmt.Printf("  %-8s %d parameters, vocab %d/%d, best loss %.4f, trained %s (run %s)\n",
				m.Language, md.ParameterCount, md.SrcVocabSize, md.TgtVocabSize,
				md.BestValidationLoss, md.CreatedAt.Format("2006-01-02 15:04"), md.RunID)
		}
	}
	return nil
}

// ChatModels returns the sorted chat model IDs usable for translation.
func (l *Lister) ChatModels(ctx context.Context) ([]string, error) {
	if l.apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not found. Set OPENAI_API_KEY environment variable or configure in .kumajala.yaml")
	}

	models, err := l.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	ids := make([]string, 0, len(models.Models))
	for _, model := range models.Models {
		ids = append(ids, model.ID)
	}
	return chatModels(ids), nil
}

// ListAvailableModels prints the OpenAI chat models usable by the
// generative fallback.
func (l *Lister) ListAvailableModels(ctx context.Context) error {
	chat, err := l.ChatModels(ctx)
	if err != nil {
		return err
	}

	fmt.Println("\nChat/Translation Models (for the generative fallback):")
	if len(chat) == 0 {
		fmt.Println("  No chat models found")
		return nil
	}
	relevant := relevantModels(chat)
	for _, model := range relevant {
		fmt.Printf("  %s\n", model)
	}
	if n := len(chat) - len(relevant); n > 0 {
		fmt.Printf("  ... and %d more models\n", n)
	}
	return nil
}

// chatModels keeps the chat capable models, dropping audio, realtime and
// image variants.
func chatModels(ids []string) []string {
	var chat []string
	for _, id := range ids {
		if !strings.Contains(id, "gpt") && !strings.Contains(id, "chat") {
			continue
		}
		if strings.Contains(id, "tts") || strings.Contains(id, "audio") ||
			strings.Contains(id, "realtime") || strings.Contains(id, "image") ||
			strings.Contains(id, "transcribe") {
			continue
		}
		chat = append(chat, id)
	}
	sort.Strings(chat)
	return chat
}

// relevantModels shortens long lists to the gpt-4 family.
func relevantModels(chat []string) []string {
	if len(chat) <= 10 {
		return chat
	}
	var relevant []string
	for _, model := range chat {
		if strings.Contains(model, "gpt-4") {
			relevant = append(relevant, model)
		}
	}
	return relevant
}

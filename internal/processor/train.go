package processor

import (
	"context"
	"fmt"
	"math"
	"os"

	"codeberg.org/snonux/kumajala/internal/archive"
	"codeberg.org/snonux/kumajala/internal/seq2seq"
	"codeberg.org/snonux/kumajala/internal/training"
)

// Train trains the model of --language on the corpus and saves it into
// the models directory, archiving the previous model first with --archive.
func (p *Processor) Train(ctx context.Context) (*training.Report, error) {
	lang, err := p.targetLanguage()
	if err != nil {
		return nil, err
	}
	c, err := p.loadCorpus()
	if err != nil {
		return nil, err
	}
	pairs := c.Pairs(lang)
	if len(pairs) == 0 {
		return nil, fmt.Errorf("corpus %s has no %s translations", p.flags.CorpusFile, lang)
	}

	modelDir := seq2seq.ArtifactDir(p.flags.ModelsDir, lang)
	archived := ""
	if p.flags.Archive {
		archived, err = archive.ArchiveIfExists(modelDir)
		if err != nil {
			return nil, fmt.Errorf("failed to archive %s model: %w", lang, err)
		}
		if archived != "" {
			fmt.Printf("Previous %s model archived to: %s\n", lang, archived)
		}
	}

	cfg := p.flags.TrainingConfig()
	pipe := &training.Pipeline{
		Language:    lang,
		ModelsDir:   p.flags.ModelsDir,
		Training:    cfg,
		Model:       p.flags.ModelConfig(),
		Generate:    p.flags.GenerateOptions(),
		Checkpoints: p.flags.Checkpoints,
		OnEpoch: func(s training.EpochStats) {
			printEpoch(s, cfg.MaxEpochs)
		},
	}

	fmt.Printf("Training %s model on %d pairs (augmentation x%d)...\n", lang, len(pairs), cfg.AugmentFactor)
	rep, err := pipe.Run(ctx, pairs)
	if err != nil {
		if archived != "" && (rep == nil || rep.ArtifactDir == "") {
			restoreArchived(archived, modelDir)
		}
		return rep, err
	}

	fmt.Println()
	fmt.Println(renderSummary("Training Summary", trainingRows(rep)))
	return rep, nil
}

// restoreArchived puts the previous model back when a run wrote nothing.
func restoreArchived(archived, modelDir string) {
	if err := os.RemoveAll(modelDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to restore previous model from %s: %v\n", archived, err)
		return
	}
	if err := os.Rename(archived, modelDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to restore previous model from %s: %v\n", archived, err)
		return
	}
	fmt.Printf("Previous model restored to: %s\n", modelDir)
}

func printEpoch(s training.EpochStats, maxEpochs int) {
	improved := ""
	if s.Improved {
		improved = okStyle.Render(" *")
	}
	val := "n/a"
	if !math.IsNaN(s.ValidationLoss) {
		val = fmt.Sprintf("%.4f", s.ValidationLoss)
	}
	fmt.Printf("Epoch %3d/%d  loss %.4f  val %s  lr %.1e  grad %.2f  (%v)%s\n",
		s.Epoch, maxEpochs, s.TrainLoss, val, s.LearningRate, s.GradNorm, s.Duration.Round(1e6), improved)
}

func trainingRows(rep *training.Report) []summaryRow {
	rows := []summaryRow{
		row("Language", "%s", rep.Language),
		row("Run", "%s", rep.RunID),
		row("Pairs", "%d (%d after augmentation)", rep.Pairs, rep.Augmented),
		row("Split", "%d train, %d validation, %d test, %d dropped",
			len(rep.Dataset.Train), len(rep.Dataset.Validation), len(rep.Dataset.Test), rep.Dataset.Dropped),
		row("Vocabulary", "%d source, %d target", rep.SrcVocabSize, rep.TgtVocabSize),
		row("Parameters", "%d", rep.Parameters),
		row("Epochs", "%d (best %d, loss %.4f)", len(rep.History.Epochs), rep.History.BestEpoch, rep.History.BestLoss),
	}
	if rep.History.StoppedEarly {
		rows = append(rows, row("Stopped", "early, no improvement"))
	}
	if !math.IsNaN(rep.TestLoss) {
		rows = append(rows, row("Test loss", "%.4f", rep.TestLoss))
	}
	if rep.Evaluation != nil {
		rows = append(rows,
			row("BLEU", "%.2f", rep.Evaluation.Score.BLEU),
			row("Exact match", "%.1f%%", rep.Evaluation.ExactMatch))
	}
	rows = append(rows, row("Saved to", "%s", rep.ArtifactDir))
	if rep.CheckpointDir != "" {
		rows = append(rows, row("Checkpoints", "%s", rep.CheckpointDir))
	}
	return append(rows, row("Duration", "%v", rep.Duration.Round(1e6)))
}

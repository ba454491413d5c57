package training

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"codeberg.org/snonux/kumajala/internal/corpus"
	"codeberg.org/snonux/kumajala/internal/evaluation"
	"codeberg.org/snonux/kumajala/internal/language"
	"codeberg.org/snonux/kumajala/internal/seq2seq"
	"codeberg.org/snonux/kumajala/internal/vocab"
)

// Pipeline trains one target language end to end and writes the artifact.
type Pipeline struct {
	Language  string
	ModelsDir string
	Training  Config
	Model     seq2seq.Config
	Generate  seq2seq.GenerateOptions

	// Checkpoints additionally keeps a copy of every improvement under
	// <ModelsDir>/checkpoints/<language>-<run id>. The artifact directory
	// itself is always rewritten on improvement.
	Checkpoints bool
	OnEpoch     func(EpochStats)
}

// Report summarises a pipeline run.
type Report struct {
	Language      string
	RunID         string
	Pairs         int
	Augmented     int
	Dataset       *Dataset
	SrcVocabSize  int
	TgtVocabSize  int
	Parameters    int
	History       *History
	TestLoss      float64
	Evaluation    *evaluation.Report
	ArtifactDir   string
	CheckpointDir string
	Duration      time.Duration
}

// Run augments pairs, builds both vocabularies, trains, scores the test split
// and saves the artifact into the language's model directory. The artifact is
// written on every improvement, and a cancelled run still leaves the best
// weights on disk; Report.ArtifactDir is set once anything was written.
func (p *Pipeline) Run(ctx context.Context, pairs []corpus.Pair) (*Report, error) {
	start := time.Now()
	lang, err := language.Normalize(p.Language)
	if err != nil {
		return nil, err
	}
	if err := p.Training.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training configuration: %w", err)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no %s training pairs", lang)
	}

	rep := &Report{Language: lang, RunID: uuid.New().String(), Pairs: len(pairs)}

	augmented := corpus.NewAugmenter(p.Training.AugmentFactor, p.Training.NoiseProbability, p.Training.Seed).Augment(pairs)
	rep.Augmented = len(augmented)

	sources := make([]string, len(augmented))
	targets := make([]string, len(augmented))
	for i, pair := range augmented {
		sources[i], targets[i] = pair.Source, pair.Target
	}
	srcVocab := vocab.Build(language.Source, sources, p.Training.MinFrequency)
	tgtVocab := vocab.Build(lang, targets, p.Training.MinFrequency)
	rep.SrcVocabSize, rep.TgtVocabSize = srcVocab.Size(), tgtVocab.Size()

	rep.Dataset = NewDataset(augmented, srcVocab, tgtVocab, p.Training)
	if len(rep.Dataset.Train) == 0 {
		return rep, fmt.Errorf("no %s training pairs left after filtering", lang)
	}
	klog.V(1).Infof("%s dataset: %d train, %d validation, %d test, %d dropped",
		lang, len(rep.Dataset.Train), len(rep.Dataset.Validation), len(rep.Dataset.Test), rep.Dataset.Dropped)

	model, err := seq2seq.New(p.Model, srcVocab.Size(), tgtVocab.Size(), rand.New(rand.NewSource(p.Training.Seed)))
	if err != nil {
		return rep, fmt.Errorf("failed to build model: %w", err)
	}
	rep.Parameters = model.Params.Count()

	translator, err := seq2seq.NewTranslator(model, srcVocab, tgtVocab, p.Generate)
	if err != nil {
		return rep, err
	}

	artifactDir := seq2seq.ArtifactDir(p.ModelsDir, lang)
	save := func(dir string, loss float64) error {
		return seq2seq.SaveArtifact(dir, translator, seq2seq.Metadata{RunID: rep.RunID, BestValidationLoss: loss})
	}
	if p.Checkpoints {
		rep.CheckpointDir = filepath.Join(p.ModelsDir, "checkpoints", lang+"-"+rep.RunID)
	}

	trainer := NewTrainer(model, rep.Dataset, p.Training)
	trainer.OnEpoch = p.OnEpoch
	trainer.Checkpoint = func(epoch int, loss float64) error {
		if err := save(artifactDir, loss); err != nil {
			return err
		}
		rep.ArtifactDir = artifactDir
		if p.Checkpoints {
			return save(rep.CheckpointDir, loss)
		}
		return nil
	}

	rep.History, err = trainer.Run(ctx)
	if err != nil {
		rep.Duration = time.Since(start)
		if ctx.Err() == nil || rep.History == nil || rep.History.BestEpoch == 0 {
			return rep, fmt.Errorf("training %s failed: %w", lang, err)
		}
		// Interrupted: keep the restored best weights.
		if serr := save(artifactDir, rep.History.BestLoss); serr != nil {
			return rep, fmt.Errorf("training %s interrupted and saving the best model failed: %v: %w", lang, serr, err)
		}
		rep.ArtifactDir = artifactDir
		return rep, fmt.Errorf("training %s interrupted, best model (epoch %d) saved to %s: %w",
			lang, rep.History.BestEpoch, artifactDir, err)
	}

	rep.TestLoss = math.NaN()
	if len(rep.Dataset.Test) > 0 {
		rep.TestLoss = trainer.Loss(rep.Dataset.Test)
		rep.Evaluation = evaluation.Evaluate(translator, Pairs(rep.Dataset.Test))
	}

	if err := save(artifactDir, rep.History.BestLoss); err != nil {
		return rep, fmt.Errorf("failed to save %s model: %w", lang, err)
	}
	rep.ArtifactDir = artifactDir

	rep.Duration = time.Since(start)
	return rep, nil
}

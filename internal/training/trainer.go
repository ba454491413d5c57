package training

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"k8s.io/klog/v2"

	"codeberg.org/snonux/kumajala/internal/nn"
	"codeberg.org/snonux/kumajala/internal/seq2seq"
)

// EpochStats describes one finished epoch.
type EpochStats struct {
	Epoch          int
	TrainLoss      float64
	ValidationLoss float64 // NaN without a validation split
	LearningRate   float64
	GradNorm       float64 // mean pre-clip gradient norm
	Improved       bool
	Duration       time.Duration
}

// History is the outcome of a training run.
type History struct {
	Epochs       []EpochStats
	BestEpoch    int
	BestLoss     float64
	StoppedEarly bool
}

// Trainer fits a model to a dataset with teacher forcing, Adam, gradient
// clipping, learning-rate decay on plateaus and early stopping.
type Trainer struct {
	Model  *seq2seq.Model
	Data   *Dataset
	Config Config

	// OnEpoch, when set, is called after every epoch.
	OnEpoch func(EpochStats)
	// Checkpoint, when set, is called whenever the monitored loss improves.
	Checkpoint func(epoch int, loss float64) error

	opt *nn.Adam
	rng *rand.Rand
}

// NewTrainer returns a trainer for m on data.
func NewTrainer(m *seq2seq.Model, data *Dataset, cfg Config) *Trainer {
	return &Trainer{
		Model:  m,
		Data:   data,
		Config: cfg,
		opt:    nn.NewAdam(cfg.LearningRate),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// LearningRate returns the optimiser's current learning rate.
func (t *Trainer) LearningRate() float64 {
	return t.opt.LearningRate
}

// Run trains until MaxEpochs, early stopping or cancellation of ctx, which
// is checked between epochs. The best weights seen are restored before
// returning, also on cancellation.
func (t *Trainer) Run(ctx context.Context) (*History, error) {
	if err := t.Config.Validate(); err != nil {
		return nil, err
	}
	if len(t.Data.Train) == 0 {
		return nil, fmt.Errorf("no training examples")
	}

	h := &History{BestLoss: math.Inf(1)}
	sched := newPlateau(t.Config)
	var best map[string][]float64

	restore := func() error {
		if best == nil {
			return nil
		}
		return t.Model.Params.Restore(best)
	}

	for epoch := 1; epoch <= t.Config.MaxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			if rerr := restore(); rerr != nil {
				return h, rerr
			}
			return h, err
		}

		start := time.Now()
		stats := EpochStats{Epoch: epoch, LearningRate: t.opt.LearningRate}
		stats.TrainLoss, stats.GradNorm = t.trainEpoch()
		stats.ValidationLoss = math.NaN()
		monitored := stats.TrainLoss
		if len(t.Data.Validation) > 0 {
			stats.ValidationLoss = t.Loss(t.Data.Validation)
			monitored = stats.ValidationLoss
		}
		stats.Duration = time.Since(start)

		step := sched.observe(monitored, t.opt.LearningRate)
		stats.Improved = step.improved
		if step.improved {
			h.BestEpoch, h.BestLoss = epoch, monitored
			best = t.Model.Params.Snapshot()
			if t.Checkpoint != nil {
				if err := t.Checkpoint(epoch, monitored); err != nil {
					return h, fmt.Errorf("checkpoint at epoch %d: %w", epoch, err)
				}
			}
		}
		if step.learningRate != t.opt.LearningRate {
			klog.V(1).Infof("epoch %d: reducing learning rate to %g", epoch, step.learningRate)
			t.opt.LearningRate = step.learningRate
		}

		h.Epochs = append(h.Epochs, stats)
		klog.V(1).Infof("epoch %d: train %.4f val %.4f lr %g", epoch, stats.TrainLoss, stats.ValidationLoss, stats.LearningRate)
		if t.OnEpoch != nil {
			t.OnEpoch(stats)
		}
		if step.stop {
			klog.V(1).Infof("early stopping at epoch %d, best epoch %d", epoch, h.BestEpoch)
			h.StoppedEarly = true
			break
		}
	}

	if err := restore(); err != nil {
		return h, err
	}
	return h, nil
}

// trainEpoch runs one pass over the shuffled training split and returns the
// token-weighted mean loss and the mean gradient norm.
func (t *Trainer) trainEpoch() (float64, float64) {
	params := t.Model.Params
	total, tokens := 0.0, 0
	normSum, steps := 0.0, 0

batches:
	for _, batch := range Batches(t.Data.Train, t.Config.BatchSize, t.rng) {
		params.ZeroGrad()
		traces, loss, grads, n := t.forward(batch, true)
		if n == 0 {
			continue
		}
		offset := 0
		for _, tr := range traces {
			k := len(tr.Steps)
			if err := t.Model.Backward(tr, grads[offset:offset+k]); err != nil {
				klog.Warningf("skipping batch: %v", err)
				continue batches
			}
			offset += k
		}

		normSum += params.ClipGradNorm(t.Config.GradClipNorm)
		steps++
		t.opt.Step(params.All())
		total += loss * float64(n)
		tokens += n
	}

	if tokens == 0 {
		return 0, 0
	}
	return total / float64(tokens), normSum / float64(steps)
}

// forward runs the padded batch through the model and returns the traces with
// the masked loss over all of them.
func (t *Trainer) forward(batch []Example, train bool) ([]*seq2seq.Trace, float64, [][]float64, int) {
	srcs, tgts := Pad(batch)
	traces := make([]*seq2seq.Trace, 0, len(batch))
	var logits [][]float64
	var targets []int
	for i := range batch {
		tr, err := t.Model.Forward(srcs[i], tgts[i], train)
		if err != nil {
			klog.Warningf("skipping example %q: %v", batch[i].Source, err)
			continue
		}
		traces = append(traces, tr)
		logits = append(logits, tr.Logits()...)
		targets = append(targets, tr.Targets...)
	}
	loss, grads, n := MaskedCrossEntropy(logits, targets)
	return traces, loss, grads, n
}

// Loss returns the token-weighted masked loss over examples without dropout
// or weight updates. It is NaN for an empty slice.
func (t *Trainer) Loss(examples []Example) float64 {
	if len(examples) == 0 {
		return math.NaN()
	}
	total, tokens := 0.0, 0
	for _, batch := range Batches(examples, t.Config.BatchSize, nil) {
		_, loss, _, n := t.forward(batch, false)
		total += loss * float64(n)
		tokens += n
	}
	if tokens == 0 {
		return math.NaN()
	}
	return total / float64(tokens)
}

// plateau tracks the monitored loss for learning-rate decay and early
// stopping. Both counters reset on improvement; the decay counter also
// resets after each decay.
type plateau struct {
	cfg     Config
	best    float64
	stale   int
	lrStale int
}

type plateauStep struct {
	improved     bool
	learningRate float64
	stop         bool
}

func newPlateau(cfg Config) *plateau {
	return &plateau{cfg: cfg, best: math.Inf(1)}
}

func (p *plateau) observe(loss, lr float64) plateauStep {
	step := plateauStep{learningRate: lr}
	if loss < p.best {
		p.best = loss
		p.stale, p.lrStale = 0, 0
		step.improved = true
		return step
	}

	p.stale++
	p.lrStale++
	if p.lrStale >= p.cfg.LRPatience && lr > p.cfg.MinLearningRate {
		step.learningRate = math.Max(lr*p.cfg.LRDecayFactor, p.cfg.MinLearningRate)
		p.lrStale = 0
	}
	step.stop = p.stale >= p.cfg.EarlyStoppingPatience
	return step
}

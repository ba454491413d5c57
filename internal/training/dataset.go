package training

import (
	"math/rand"

	"codeberg.org/snonux/kumajala/internal/corpus"
	"codeberg.org/snonux/kumajala/internal/vocab"
)

// Example is an encoded sentence pair. Src and Tgt carry START and END.
type Example struct {
	Source string
	Target string
	Src    []int
	Tgt    []int
}

// Dataset holds the three disjoint splits.
type Dataset struct {
	Train      []Example
	Validation []Example
	Test       []Example
	// Dropped counts pairs rejected for exceeding the sequence length.
	Dropped int
}

// NewDataset encodes pairs, drops those longer than cfg.MaxSequenceLength on
// either side and splits the rest after a seeded shuffle: the first
// int(n*TestSplit) examples go to Test, the next int(n*ValidationSplit) to
// Validation and the remainder to Train.
func NewDataset(pairs []corpus.Pair, src, tgt *vocab.Vocabulary, cfg Config) *Dataset {
	ds := &Dataset{}
	examples := make([]Example, 0, len(pairs))
	for _, p := range pairs {
		ex := Example{
			Source: p.Source,
			Target: p.Target,
			Src:    src.Encode(p.Source, true),
			Tgt:    tgt.Encode(p.Target, true),
		}
		if len(ex.Src) > cfg.MaxSequenceLength || len(ex.Tgt) > cfg.MaxSequenceLength {
			ds.Dropped++
			continue
		}
		examples = append(examples, ex)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	rng.Shuffle(len(examples), func(i, j int) {
		examples[i], examples[j] = examples[j], examples[i]
	})

	n := len(examples)
	nTest := int(float64(n) * cfg.TestSplit)
	nVal := int(float64(n) * cfg.ValidationSplit)
	ds.Test = examples[:nTest]
	ds.Validation = examples[nTest : nTest+nVal]
	ds.Train = examples[nTest+nVal:]
	return ds
}

// Pairs returns the raw pairs of examples, for evaluation.
func Pairs(examples []Example) []corpus.Pair {
	pairs := make([]corpus.Pair, len(examples))
	for i, ex := range examples {
		pairs[i] = corpus.Pair{Source: ex.Source, Target: ex.Target}
	}
	return pairs
}

// Batches cuts examples into batches of at most size. A non-nil rng shuffles
// a copy first; the input slice is not reordered.
func Batches(examples []Example, size int, rng *rand.Rand) [][]Example {
	order := make([]Example, len(examples))
	copy(order, examples)
	if rng != nil {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	var batches [][]Example
	for start := 0; start < len(order); start += size {
		end := start + size
		if end > len(order) {
			end = len(order)
		}
		batches = append(batches, order[start:end])
	}
	return batches
}

// Pad right-pads every source and target of batch with PAD to the longest
// source and target in the batch.
func Pad(batch []Example) ([][]int, [][]int) {
	srcLen, tgtLen := 0, 0
	for _, ex := range batch {
		srcLen = max(srcLen, len(ex.Src))
		tgtLen = max(tgtLen, len(ex.Tgt))
	}

	srcs := make([][]int, len(batch))
	tgts := make([][]int, len(batch))
	for i, ex := range batch {
		srcs[i] = padTo(ex.Src, srcLen)
		tgts[i] = padTo(ex.Tgt, tgtLen)
	}
	return srcs, tgts
}

func padTo(ids []int, n int) []int {
	out := make([]int, n)
	copy(out, ids)
	for i := len(ids); i < n; i++ {
		out[i] = vocab.PadID
	}
	return out
}

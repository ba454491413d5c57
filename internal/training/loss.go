package training

import (
	"codeberg.org/snonux/kumajala/internal/nn"
	"codeberg.org/snonux/kumajala/internal/vocab"
)

// MaskedCrossEntropy returns the mean cross-entropy over every target that is
// not PAD, the gradient of that mean for each row of logits and the number of
// counted targets. A batch of PAD only yields a zero loss and zero gradients.
func MaskedCrossEntropy(logits [][]float64, targets []int) (float64, [][]float64, int) {
	grads := make([][]float64, len(logits))
	sum := 0.0
	count := 0
	for i, row := range logits {
		if targets[i] == vocab.PadID {
			grads[i] = make([]float64, len(row))
			continue
		}
		loss, g := nn.CrossEntropy(row, targets[i])
		sum += loss
		grads[i] = g
		count++
	}
	if count == 0 {
		return 0, grads, 0
	}

	scale := 1 / float64(count)
	for i, g := range grads {
		if targets[i] == vocab.PadID {
			continue
		}
		for j := range g {
			g[j] *= scale
		}
	}
	return sum * scale, grads, count
}

// Package confidence turns the attention trace of a neural translation into a
// score in [0,1]. Sharply focused attention scores high, attention spread
// evenly over the source scores low, and slow translations are penalised.
package confidence

import (
	"math"
	"time"
)

const (
	// DefaultLatencyThreshold is the latency above which the slow penalty applies.
	DefaultLatencyThreshold = time.Second
	// DefaultSlowPenalty multiplies the score of slow translations.
	DefaultSlowPenalty = 0.8
	// NeutralScore is returned when there is no attention trace.
	NeutralScore = 0.5

	epsilon = 1e-10
)

// Estimator scores translations. The zero value is not useful; start from
// NewEstimator.
type Estimator struct {
	LatencyThreshold time.Duration
	SlowPenalty      float64
}

// NewEstimator returns an estimator with the default threshold and penalty.
func NewEstimator() Estimator {
	return Estimator{
		LatencyThreshold: DefaultLatencyThreshold,
		SlowPenalty:      DefaultSlowPenalty,
	}
}

// Estimate scores an attention trace (one row of weights over the source
// tokens per generated step) produced in elapsed time.
func (e Estimator) Estimate(trace [][]float64, elapsed time.Duration) float64 {
	if len(trace) == 0 {
		return NeutralScore
	}

	attention := 1.0
	srcLen := len(trace[0])
	if srcLen > 1 {
		total := 0.0
		for _, row := range trace {
			total += Entropy(row)
		}
		mean := total / float64(len(trace))
		attention = 1 - mean/(math.Log(float64(srcLen))+epsilon)
	}

	penalty := 1.0
	if elapsed >= e.LatencyThreshold {
		penalty = e.SlowPenalty
	}
	return clip(attention * penalty)
}

// Entropy renormalises weights to a distribution and returns its entropy in
// nats.
func Entropy(weights []float64) float64 {
	sum := epsilon
	for _, w := range weights {
		sum += w
	}
	h := 0.0
	for _, w := range weights {
		p := w / sum
		h -= p * math.Log(p+epsilon)
	}
	return h
}

func clip(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

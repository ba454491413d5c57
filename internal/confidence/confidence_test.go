package confidence

import (
	"math"
	"testing"
	"time"
)

func TestEstimate(t *testing.T) {
	e := NewEstimator()
	uniform4 := []float64{0.25, 0.25, 0.25, 0.25}
	peaked4 := []float64{1, 0, 0, 0}

	tests := []struct {
		name    string
		trace   [][]float64
		elapsed time.Duration
		want    float64
	}{
		{name: "empty trace", trace: nil, want: 0.5},
		{name: "empty trace slow", trace: nil, elapsed: 5 * time.Second, want: 0.5},
		{name: "uniform attention", trace: [][]float64{uniform4, uniform4}, want: 0},
		{name: "peaked attention", trace: [][]float64{peaked4}, want: 1},
		{name: "peaked attention slow", trace: [][]float64{peaked4}, elapsed: 2 * time.Second, want: 0.8},
		{name: "single source token", trace: [][]float64{{1}, {1}}, want: 1},
		{name: "single source token slow", trace: [][]float64{{1}}, elapsed: time.Second, want: 0.8},
		{name: "half peaked", trace: [][]float64{peaked4, uniform4}, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Estimate(tt.trace, tt.elapsed)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Estimate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateRenormalises(t *testing.T) {
	e := NewEstimator()
	a := e.Estimate([][]float64{{0.5, 0.25, 0.25}}, 0)
	b := e.Estimate([][]float64{{2, 1, 1}}, 0)
	if math.Abs(a-b) > 1e-6 {
		t.Errorf("unnormalised rows should score the same: %v vs %v", a, b)
	}
}

func TestEstimateAlwaysInRange(t *testing.T) {
	e := NewEstimator()
	traces := [][][]float64{
		{{0, 0, 0}},
		{{-1, 2, 0}},
		{{math.NaN(), 1}},
		{{1e-300, 1e-300}},
	}
	for _, tr := range traces {
		got := e.Estimate(tr, 0)
		if got < 0 || got > 1 || math.IsNaN(got) {
			t.Errorf("Estimate(%v) = %v, want value in [0,1]", tr, got)
		}
	}
}

func TestEntropy(t *testing.T) {
	if got := Entropy([]float64{0.5, 0.5}); math.Abs(got-math.Log(2)) > 1e-6 {
		t.Errorf("Entropy(uniform 2) = %v, want %v", got, math.Log(2))
	}
	if got := Entropy([]float64{1, 0}); math.Abs(got) > 1e-6 {
		t.Errorf("Entropy(peaked) = %v, want 0", got)
	}
}

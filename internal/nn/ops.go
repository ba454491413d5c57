package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func vec(x []float64) blas64.Vector {
	return blas64.Vector{N: len(x), Data: x, Inc: 1}
}

// AddMulVec computes dst += W x.
func AddMulVec(dst []float64, w *mat.Dense, x []float64) {
	blas64.Gemv(blas.NoTrans, 1, w.RawMatrix(), vec(x), 1, vec(dst))
}

// AddMulTVec computes dst += Wᵀ x.
func AddMulTVec(dst []float64, w *mat.Dense, x []float64) {
	blas64.Gemv(blas.Trans, 1, w.RawMatrix(), vec(x), 1, vec(dst))
}

// AddOuter computes G += alpha · x yᵀ.
func AddOuter(g *mat.Dense, alpha float64, x, y []float64) {
	blas64.Ger(alpha, vec(x), vec(y), g.RawMatrix())
}

// Sigmoid is the logistic function.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Softmax writes the softmax of x into dst. dst and x may alias.
func Softmax(dst, x []float64) {
	maxV := floats.Max(x)
	sum := 0.0
	for i, v := range x {
		e := math.Exp(v - maxV)
		dst[i] = e
		sum += e
	}
	floats.Scale(1/sum, dst)
}

// LogSoftmax writes log(softmax(x)) into dst.
func LogSoftmax(dst, x []float64) {
	lse := floats.LogSumExp(x)
	for i, v := range x {
		dst[i] = v - lse
	}
}

// CrossEntropy returns -log softmax(logits)[target] and its gradient with
// respect to the logits, softmax(logits) - onehot(target).
func CrossEntropy(logits []float64, target int) (float64, []float64) {
	grad := make([]float64, len(logits))
	Softmax(grad, logits)
	loss := -math.Log(math.Max(grad[target], 1e-12))
	grad[target]--
	return loss, grad
}

// DropoutMask returns an inverted dropout mask of length n holding either 0 or
// 1/(1-rate). A nil mask means no dropout.
func DropoutMask(rng *rand.Rand, n int, rate float64) []float64 {
	if rate <= 0 || rng == nil {
		return nil
	}
	keep := 1 - rate
	mask := make([]float64, n)
	for i := range mask {
		if rng.Float64() < keep {
			mask[i] = 1 / keep
		}
	}
	return mask
}

// ApplyMask multiplies x by mask element-wise in place. A nil mask is a no-op.
func ApplyMask(x, mask []float64) {
	if mask == nil {
		return
	}
	floats.Mul(x, mask)
}

// Concat returns a new slice holding a followed by b.
func Concat(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

// Argmax returns the index of the largest element; ties go to the lowest index.
func Argmax(x []float64) int {
	best := 0
	for i := 1; i < len(x); i++ {
		if x[i] > x[best] {
			best = i
		}
	}
	return best
}

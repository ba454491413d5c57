package corpus

import (
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
)

var (
	whitespace    = regexp.MustCompile(`\s+`)
	singleSpace   = regexp.MustCompile(`\s`)
	endings       = []string{".", "!", "?", ""}
	trailingPunct = ".!?"
)

// Augmenter multiplies a small parallel corpus with surface variations:
// punctuation, letter case, spacing and, on the source side only, character
// noise. It is deterministic for a given seed.
type Augmenter struct {
	Factor           int
	NoiseProbability float64

	rng *rand.Rand
}

// NewAugmenter returns an augmenter producing factor pairs per input pair.
func NewAugmenter(factor int, noiseProbability float64, seed int64) *Augmenter {
	return &Augmenter{
		Factor:           factor,
		NoiseProbability: noiseProbability,
		rng:              rand.New(rand.NewSource(seed)),
	}
}

// Augment returns every input pair followed by Factor-1 variations of it.
// Factor <= 1 returns a copy of pairs.
func (a *Augmenter) Augment(pairs []Pair) []Pair {
	factor := a.Factor
	if factor < 1 {
		factor = 1
	}
	out := make([]Pair, 0, len(pairs)*factor)
	for _, p := range pairs {
		out = append(out, p)
		for i := 1; i < factor; i++ {
			out = append(out, a.vary(p))
		}
	}
	return out
}

func (a *Augmenter) vary(p Pair) Pair {
	switch a.rng.Intn(4) {
	case 0:
		return a.punctuation(p)
	case 1:
		return a.letterCase(p)
	case 2:
		return a.spacing(p)
	default:
		return a.noise(p)
	}
}

func (a *Augmenter) punctuation(p Pair) Pair {
	end := endings[a.rng.Intn(len(endings))]
	return Pair{
		Source: strings.TrimRight(p.Source, trailingPunct) + end,
		Target: strings.TrimRight(p.Target, trailingPunct) + end,
	}
}

func (a *Augmenter) letterCase(p Pair) Pair {
	var f func(string) string
	switch a.rng.Intn(3) {
	case 0:
		f = cases.Lower(xlang.French).String
	case 1:
		f = capitalize
	default:
		f = func(s string) string {
			if len(strings.Fields(s)) == 1 {
				return cases.Upper(xlang.French).String(s)
			}
			return capitalize(s)
		}
	}
	return Pair{Source: f(p.Source), Target: f(p.Target)}
}

func (a *Augmenter) spacing(p Pair) Pair {
	src := strings.TrimSpace(whitespace.ReplaceAllString(p.Source, " "))
	tgt := strings.TrimSpace(whitespace.ReplaceAllString(p.Target, " "))
	if a.rng.Float64() < 0.3 {
		src = singleSpace.ReplaceAllString(src, "  ")
		tgt = singleSpace.ReplaceAllString(tgt, "  ")
	}
	return Pair{Source: src, Target: tgt}
}

// noise perturbs one character of the source, with NoiseProbability.
func (a *Augmenter) noise(p Pair) Pair {
	if a.rng.Float64() > a.NoiseProbability {
		return p
	}
	return Pair{Source: a.perturb(p.Source), Target: p.Target}
}

func (a *Augmenter) perturb(s string) string {
	runes := []rune(s)
	if len(runes) < 3 {
		return s
	}
	pos := 1 + a.rng.Intn(len(runes)-2)
	switch a.rng.Intn(3) {
	case 0: // swap
		runes[pos], runes[pos+1] = runes[pos+1], runes[pos]
	case 1: // duplicate
		dup := make([]rune, 0, len(runes)+1)
		dup = append(dup, runes[:pos+1]...)
		runes = append(dup, runes[pos:]...)
	default: // delete
		runes = append(runes[:pos], runes[pos+1:]...)
	}
	return string(runes)
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return cases.Upper(xlang.French).String(string(r)) + cases.Lower(xlang.French).String(s[size:])
}

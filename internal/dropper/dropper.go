// Package dropper samples loss decisions and erasure patterns for
// evaluation runs.
package dropper

import (
	"math/rand"
)

// Bernoulli implements a simple u<p drop decision.
type Bernoulli struct {
	p   float64
	rng *rand.Rand
}

func New(p float64, rng *rand.Rand) *Bernoulli { return &Bernoulli{p: p, rng: rng} }

func (b *Bernoulli) Drop() bool {
	if b.p <= 0 {
		return false
	}
	if b.p >= 1 {
		return true
	}
	return b.rng.Float64() < b.p
}

// Pattern draws an erasure pattern over k rows, dropping each row
// independently but never more than max rows total. The returned
// indices are ascending.
func (b *Bernoulli) Pattern(k, max int) []int {
	var out []int
	for row := 0; row < k && len(out) < max; row++ {
		if b.Drop() {
			out = append(out, row)
		}
	}
	return out
}

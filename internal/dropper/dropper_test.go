package dropper

import (
	"math/rand"
	"sort"
	"testing"
)

func TestDropExtremes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	never := New(0, rng)
	always := New(1, rng)
	for i := 0; i < 100; i++ {
		if never.Drop() {
			t.Fatal("p=0 dropped")
		}
		if !always.Drop() {
			t.Fatal("p=1 kept")
		}
	}
}

func TestPatternBoundedAscending(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	b := New(0.5, rng)
	for trial := 0; trial < 200; trial++ {
		pat := b.Pattern(40, 7)
		if len(pat) > 7 {
			t.Fatalf("pattern exceeds max: %v", pat)
		}
		if !sort.IntsAreSorted(pat) {
			t.Fatalf("pattern not ascending: %v", pat)
		}
		for _, r := range pat {
			if r < 0 || r >= 40 {
				t.Fatalf("row out of range: %v", pat)
			}
		}
	}
}

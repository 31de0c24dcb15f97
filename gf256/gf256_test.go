package gf256

import (
	"math/rand"
	"testing"
)

func TestMain(m *testing.M) {
	if err := Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func TestExpLogRoundTrip(t *testing.T) {
	for a := 1; a < 256; a++ {
		if got := expTable[logTable[a]]; got != byte(a) {
			t.Fatalf("exp(log(%d)) = %d", a, got)
		}
	}
	// all non-zero elements appear exactly once in one period
	seen := make(map[byte]bool)
	for i := 0; i < 255; i++ {
		if seen[expTable[i]] {
			t.Fatalf("exp table repeats %d at %d", expTable[i], i)
		}
		seen[expTable[i]] = true
	}
}

func TestMulProperties(t *testing.T) {
	for a := 0; a < 256; a++ {
		if Mul(byte(a), 0) != 0 || Mul(0, byte(a)) != 0 {
			t.Fatalf("zero annihilator broken for %d", a)
		}
		if Mul(byte(a), 1) != byte(a) {
			t.Fatalf("unit broken for %d", a)
		}
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		a, b, c := byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256))
		if Mul(a, b) != Mul(b, a) {
			t.Fatalf("commutativity broken for %d,%d", a, b)
		}
		if Mul(Mul(a, b), c) != Mul(a, Mul(b, c)) {
			t.Fatalf("associativity broken for %d,%d,%d", a, b, c)
		}
		// distributivity over XOR addition
		if Mul(a, b^c) != Mul(a, b)^Mul(a, c) {
			t.Fatalf("distributivity broken for %d,%d,%d", a, b, c)
		}
	}
}

func TestInvDiv(t *testing.T) {
	for a := 1; a < 256; a++ {
		if Mul(byte(a), Inv(byte(a))) != 1 {
			t.Fatalf("a * inv(a) != 1 for %d", a)
		}
	}
	for a := 0; a < 256; a++ {
		for b := 1; b < 256; b++ {
			q := Div(byte(a), byte(b))
			if Mul(q, byte(b)) != byte(a) {
				t.Fatalf("div broken: %d / %d = %d", a, b, q)
			}
		}
	}
}

func TestMemOpsMatchScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	const n = 257 // odd length
	src := make([]byte, n)
	a := make([]byte, n)
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		src[i] = byte(rng.Intn(256))
		a[i] = byte(rng.Intn(256))
		b[i] = byte(rng.Intn(256))
	}

	for _, c := range []byte{0, 1, 2, 0x1d, 0x8e, 0xff} {
		dst := append([]byte(nil), a...)
		MulMem(dst, src, c)
		for i := 0; i < n; i++ {
			if dst[i] != Mul(c, src[i]) {
				t.Fatalf("MulMem c=%#x byte %d: got %d want %d", c, i, dst[i], Mul(c, src[i]))
			}
		}

		dst = append([]byte(nil), a...)
		MulAddMem(dst, c, src)
		for i := 0; i < n; i++ {
			if dst[i] != a[i]^Mul(c, src[i]) {
				t.Fatalf("MulAddMem c=%#x byte %d mismatch", c, i)
			}
		}
	}

	dst := append([]byte(nil), a...)
	AddMem(dst, src)
	for i := 0; i < n; i++ {
		if dst[i] != a[i]^src[i] {
			t.Fatalf("AddMem byte %d mismatch", i)
		}
	}

	dst = append([]byte(nil), src...)
	Add2Mem(dst, a, b)
	for i := 0; i < n; i++ {
		if dst[i] != src[i]^a[i]^b[i] {
			t.Fatalf("Add2Mem byte %d mismatch", i)
		}
	}

	dst = make([]byte, n)
	AddSetMem(dst, a, b)
	for i := 0; i < n; i++ {
		if dst[i] != a[i]^b[i] {
			t.Fatalf("AddSetMem byte %d mismatch", i)
		}
	}
}

func TestMulMemInPlace(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	want := make([]byte, len(buf))
	MulMem(want, buf, 0x53)
	MulMem(buf, buf, 0x53)
	for i := range buf {
		if buf[i] != want[i] {
			t.Fatalf("in-place MulMem byte %d: got %d want %d", i, buf[i], want[i])
		}
	}
}

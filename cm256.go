// Package cm256 implements an MDS erasure code over GF(256).
//
// Given k equal-sized original blocks it produces m recovery blocks such
// that any k of the k+m total blocks reconstruct the originals. The
// generator is a Cauchy matrix normalized so that its first row is all
// ones, which turns the most common recovery row into plain parity.
//
// The field size bounds the code: k + m <= 256.
package cm256

import (
	"errors"

	"github.com/lalawue/cm256/gf256"
)

// Version is the engine ABI version. Callers embed it at compile time and
// pass it to Init; a mismatch is refused.
const Version = 2

var (
	// ErrVersionMismatch reports that the caller was built against a
	// different engine version.
	ErrVersionMismatch = errors.New("cm256: version mismatch")
	// ErrInvalidParams reports a non-positive k, m or blockBytes.
	ErrInvalidParams = errors.New("cm256: k, m and blockBytes must be positive")
	// ErrFieldTooSmall reports k + m > 256.
	ErrFieldTooSmall = errors.New("cm256: k + m exceeds GF(256)")
	// ErrNilBuffer reports a nil originals list or recovery region.
	ErrNilBuffer = errors.New("cm256: nil input or output buffer")
)

// Params describes one encode or decode call.
type Params struct {
	// OriginalCount is k, the number of original blocks, in [1, 256).
	OriginalCount int
	// RecoveryCount is m, the number of recovery blocks, in [1, 256).
	RecoveryCount int
	// BlockBytes is the size of every block buffer.
	BlockBytes int
}

func (p Params) validate() error {
	if p.OriginalCount < 1 || p.RecoveryCount < 1 || p.BlockBytes < 1 {
		return ErrInvalidParams
	}
	if p.OriginalCount+p.RecoveryCount > 256 {
		return ErrFieldTooSmall
	}
	return nil
}

// Block is a caller-owned buffer labeled with its row index. Indices in
// [0, k) denote original rows, [k, k+m) recovery rows. Decode rewrites
// both Data contents and Index in place.
type Block struct {
	Index int
	Data  []byte
}

// Init checks the caller's compiled-in version against the engine and
// builds the process-wide GF(256) context. Safe to call repeatedly and
// from multiple goroutines.
func Init(version int) error {
	if version != Version {
		return ErrVersionMismatch
	}
	return gf256.Init()
}

// Status maps an engine error to the historical integer status codes:
// 0 success, -1 invalid params, -2 field too small, -3 nil buffer,
// -10 version mismatch, -4 anything else.
func Status(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidParams):
		return -1
	case errors.Is(err, ErrFieldTooSmall):
		return -2
	case errors.Is(err, ErrNilBuffer):
		return -3
	case errors.Is(err, ErrVersionMismatch):
		return -10
	}
	return -4
}

// matrixElement returns a_ij of the normalized Cauchy generator:
//
//	a_ij = (y_j + x_0) / (x_i + y_j)
//
// For x_i == x_0 this is 1 for every column, which is why the first
// recovery row is unrolled as parity instead of calling this.
func matrixElement(xi, x0, yj byte) byte {
	return gf256.Div(gf256.Add(yj, x0), gf256.Add(xi, yj))
}

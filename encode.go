package cm256

import "github.com/lalawue/cm256/gf256"

// Encode fills recovery with m blocks of BlockBytes each, in row order.
// Recovery row i covers index k+i. originals must hold k buffers of
// BlockBytes each; recovery must hold m*BlockBytes bytes. No byte of
// recovery is written if an error is returned.
func Encode(p Params, originals [][]byte, recovery []byte) error {
	if err := p.validate(); err != nil {
		return err
	}
	if originals == nil || recovery == nil {
		return ErrNilBuffer
	}
	if err := gf256.Init(); err != nil {
		return err
	}

	k := p.OriginalCount
	bb := p.BlockBytes

	// A single original degenerates to repetition.
	if k == 1 {
		for i := 0; i < p.RecoveryCount; i++ {
			copy(recovery[i*bb:(i+1)*bb], originals[0][:bb])
		}
		return nil
	}

	// First recovery row of the matrix is all ones: plain parity.
	first := recovery[:bb]
	gf256.AddSetMem(first, originals[0], originals[1])
	for j := 2; j < k; j++ {
		gf256.AddMem(first, originals[j])
	}

	// The x_i values start from the original count, keeping them
	// disjoint from the column points y_j = 0..k-1.
	x0 := byte(k)
	for i := 1; i < p.RecoveryCount; i++ {
		xi := x0 + byte(i)
		out := recovery[i*bb : (i+1)*bb]
		gf256.MulMem(out, originals[0], matrixElement(xi, x0, 0))
		for j := 1; j < k; j++ {
			gf256.MulAddMem(out, matrixElement(xi, x0, byte(j)), originals[j])
		}
	}
	return nil
}

package cm256

import "github.com/lalawue/cm256/gf256"

// Matrices up to this many bytes live in a fixed-size array instead of
// a heap slice.
const stackMatrixBytes = 2048

// Decode reconstructs the missing original blocks in place. blocks must
// hold exactly k entries with distinct indices in [0, k+m); the engine
// does not verify distinctness. On return every block carries an index
// in [0, k) and the corresponding original data; blocks that arrived as
// originals are untouched.
func Decode(p Params, blocks []Block) error {
	if err := p.validate(); err != nil {
		return err
	}
	if err := gf256.Init(); err != nil {
		return err
	}

	// One original: every row is the same data.
	if p.OriginalCount == 1 {
		blocks[0].Index = 0
		return nil
	}

	var d decoder
	d.setup(p, blocks)

	// Nothing erased.
	if len(d.recoveries) == 0 {
		return nil
	}
	if p.RecoveryCount == 1 {
		d.decodeM1()
		return nil
	}
	d.decode()
	return nil
}

// decoder partitions the input blocks and tracks which original rows
// are missing.
type decoder struct {
	params     Params
	originals  []*Block // present original rows, input order
	recoveries []*Block // recovery rows, input order
	erasures   []int    // missing original rows, ascending
}

func (d *decoder) setup(p Params, blocks []Block) {
	d.params = p
	k := p.OriginalCount

	var present [256]bool
	for i := range blocks {
		b := &blocks[i]
		if b.Index < k {
			d.originals = append(d.originals, b)
			present[b.Index] = true
		} else {
			d.recoveries = append(d.recoveries, b)
		}
	}

	for row := 0; row < k && len(d.erasures) < len(d.recoveries); row++ {
		if !present[row] {
			d.erasures = append(d.erasures, row)
		}
	}
}

// decodeM1 handles a code with a single recovery row: that row is pure
// parity, so the one missing original is the XOR of everything else.
func (d *decoder) decodeM1() {
	out := d.recoveries[0].Data

	// Fold originals in two at a time.
	var held []byte
	for _, o := range d.originals {
		if held == nil {
			held = o.Data
			continue
		}
		gf256.Add2Mem(out, held, o.Data)
		held = nil
	}
	if held != nil {
		gf256.AddMem(out, held)
	}

	d.recoveries[0].Index = d.erasures[0]
}

// decode runs the general path: eliminate the surviving originals from
// the recovery rows, then solve the remaining square system with
// Gauss-Jordan elimination, mirroring every matrix row operation onto
// the recovery buffers.
func (d *decoder) decode() {
	bb := d.params.BlockBytes
	x0 := byte(d.params.OriginalCount)
	n := len(d.recoveries)

	// Fold the surviving originals out of every recovery row. What
	// remains in each row is a combination of the erased rows only.
	for _, o := range d.originals {
		yj := byte(o.Index)
		for _, r := range d.recoveries {
			e := matrixElement(byte(r.Index), x0, yj)
			gf256.MulAddMem(r.Data[:bb], e, o.Data)
		}
	}

	var stack [stackMatrixBytes]byte
	var matrix []byte
	if n*n > stackMatrixBytes {
		matrix = make([]byte, n*n)
	} else {
		matrix = stack[:n*n]
	}

	// Row i corresponds to recoveries[i], column j to erasures[j].
	for i, r := range d.recoveries {
		xi := byte(r.Index)
		row := matrix[i*n : (i+1)*n]
		for j, erased := range d.erasures {
			row[j] = matrixElement(xi, x0, byte(erased))
		}
	}

	// Logical row order is kept in a permutation so block buffers never
	// move; only the permutation entries swap.
	pivots := make([]int, n)
	for i := range pivots {
		pivots[i] = i
	}

	// Gaussian elimination puts the matrix into upper-triangular form
	// with a unit diagonal. The pivot hunt always succeeds: a Cauchy
	// submatrix over disjoint point sets is invertible.
	for j := 0; j < n; j++ {
		for remaining := j; remaining < n; remaining++ {
			i := pivots[remaining]
			row := matrix[i*n : (i+1)*n]
			el := row[j]
			if el == 0 {
				continue
			}

			pivots[remaining] = pivots[j]
			pivots[j] = i

			// This recovery block now reconstructs erased row j.
			rec := d.recoveries[i]
			rec.Index = d.erasures[j]
			block := rec.Data[:bb]

			// Normalize: scale the rest of the row and the block.
			// The pivot entry itself is never read again.
			if el != 1 {
				inv := gf256.Inv(el)
				gf256.MulMem(row[j+1:], row[j+1:], inv)
				gf256.MulMem(block, block, inv)
			}

			// Clear column j from the still-active rows.
			for t := j + 1; t < n; t++ {
				oi := pivots[t]
				other := matrix[oi*n : (oi+1)*n]
				c := other[j]
				gf256.MulAddMem(other[j+1:], c, row[j+1:])
				gf256.MulAddMem(d.recoveries[oi].Data[:bb], c, block)
			}
			break
		}
	}

	// Back-substitution diagonalizes the matrix. Only the blocks need
	// the updates; the matrix rows are read, never rewritten.
	for j := n - 2; j >= 0; j-- {
		pi := pivots[j]
		block := d.recoveries[pi].Data[:bb]
		row := matrix[pi*n : (pi+1)*n]
		for t := n - 1; t > j; t-- {
			gf256.MulAddMem(block, row[t], d.recoveries[pivots[t]].Data[:bb])
		}
	}
}

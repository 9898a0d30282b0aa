// Package field implements the arithmetic-in-Fp kernel shared by every
// protocol engine: modular exponentiation and inverse, modular matrix
// inversion and multiplication, secure random integers, and little-endian
// bit decomposition. Every exported function is a pure function of its
// arguments; none touches node state.
package field

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/Aukciszek/backend/protoerr"
)

var (
	big0 = big.NewInt(0)
	big1 = big.NewInt(1)
	big2 = big.NewInt(2)
)

// ModPow returns b^k mod p for k >= 0. A negative k is interpreted as the
// Fermat inverse exponent p-2, i.e. ModPow(b, -1, p) == b^(p-2) mod p,
// which equals the multiplicative inverse of b when p is prime.
func ModPow(b, k, p *big.Int) *big.Int {
	exp := k
	if k.Sign() < 0 {
		exp = new(big.Int).Sub(p, big2)
	}
	base := new(big.Int).Mod(b, p)
	return new(big.Int).Exp(base, exp, p)
}

// ModInv returns the extended-Euclid inverse of b mod p. It fails with
// protoerr.ErrNotInvertible if gcd(b, p) != 1.
func ModInv(b, p *big.Int) (*big.Int, error) {
	g := new(big.Int)
	x := new(big.Int)
	g.GCD(x, nil, new(big.Int).Mod(b, p), p)
	if g.Cmp(big1) != 0 {
		return nil, fmt.Errorf("%w: gcd(%s, %s) = %s", protoerr.ErrNotInvertible, b, p, g)
	}
	return x.Mod(x, p), nil
}

// Matrix is a dense n*m matrix of field elements mod p.
type Matrix [][]*big.Int

// NewMatrix returns a rows*cols matrix with every entry initialized to
// zero.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]*big.Int, cols)
		for j := range m[i] {
			m[i][j] = new(big.Int)
		}
	}
	return m
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i, row := range m {
		out[i] = make([]*big.Int, len(row))
		for j, v := range row {
			out[i][j] = new(big.Int).Set(v)
		}
	}
	return out
}

// MatMulMod returns a*b mod p using the standard triple loop with
// per-term reduction.
func MatMulMod(a, b Matrix, p *big.Int) (Matrix, error) {
	if len(a) == 0 || len(b) == 0 || len(a[0]) != len(b) {
		return nil, fmt.Errorf("%w: matrix dimensions do not match for multiplication", protoerr.ErrBadRequest)
	}
	rows, inner, cols := len(a), len(b), len(b[0])
	out := NewMatrix(rows, cols)
	term := new(big.Int)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sum := new(big.Int)
			for k := 0; k < inner; k++ {
				term.Mul(a[i][k], b[k][j])
				sum.Add(sum, term)
			}
			out[i][j] = sum.Mod(sum, p)
		}
	}
	return out, nil
}

// MatInvMod returns the inverse of square matrix m mod p via Gauss-Jordan
// elimination on a copy of m augmented with the identity. Pivot search
// scans rows i..n for the first non-zero entry in column i; if none is
// found the matrix is singular and MatInvMod fails with
// protoerr.ErrSingular.
func MatInvMod(m Matrix, p *big.Int) (Matrix, error) {
	n := len(m)
	for _, row := range m {
		if len(row) != n {
			return nil, fmt.Errorf("%w: matrix must be square to invert", protoerr.ErrBadRequest)
		}
	}

	aug := make(Matrix, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]*big.Int, 2*n)
		for j := 0; j < n; j++ {
			aug[i][j] = new(big.Int).Mod(m[i][j], p)
		}
		for j := n; j < 2*n; j++ {
			if j-n == i {
				aug[i][j] = new(big.Int).Set(big1)
			} else {
				aug[i][j] = new(big.Int)
			}
		}
	}

	for col := 0; col < n; col++ {
		pivotRow := -1
		for r := col; r < n; r++ {
			if aug[r][col].Sign() != 0 {
				pivotRow = r
				break
			}
		}
		if pivotRow == -1 {
			return nil, fmt.Errorf("%w: matrix is not invertible under this modulus", protoerr.ErrSingular)
		}
		if pivotRow != col {
			aug[col], aug[pivotRow] = aug[pivotRow], aug[col]
		}

		inv, err := ModInv(aug[col][col], p)
		if err != nil {
			return nil, fmt.Errorf("%w: matrix is not invertible under this modulus", protoerr.ErrSingular)
		}
		for j := 0; j < 2*n; j++ {
			aug[col][j].Mod(new(big.Int).Mul(aug[col][j], inv), p)
		}

		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			factor := new(big.Int).Set(aug[r][col])
			if factor.Sign() == 0 {
				continue
			}
			for j := 0; j < 2*n; j++ {
				term := new(big.Int).Mul(factor, aug[col][j])
				aug[r][j].Mod(aug[r][j].Sub(aug[r][j], term), p)
			}
		}
	}

	out := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			out[i][j] = aug[i][j+n]
		}
	}
	return out, nil
}

// SecureRandInt returns a cryptographically secure uniform integer in
// [lo, hi] using rejection sampling against crypto/rand, masking each
// candidate to the bit length of the span so the rejection rate stays
// at or below 50%. It fails with protoerr.ErrBadRange if lo > hi.
func SecureRandInt(lo, hi *big.Int) (*big.Int, error) {
	if lo.Cmp(hi) > 0 {
		return nil, fmt.Errorf("%w: lo > hi", protoerr.ErrBadRange)
	}
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, big1) // number of distinct values
	if span.Cmp(big1) == 0 {
		return new(big.Int).Set(lo), nil
	}

	bitLen := span.BitLen()
	byteLen := (bitLen + 7) / 8
	mask := byte((1 << uint(bitLen%8)) - 1)
	if bitLen%8 == 0 {
		mask = 0xff
	}

	buf := make([]byte, byteLen)
	for {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("%w: reading entropy: %v", protoerr.ErrInternal, err)
		}
		buf[0] &= mask
		candidate := new(big.Int).SetBytes(buf)
		if candidate.Cmp(span) < 0 {
			return candidate.Add(candidate, lo), nil
		}
	}
}

// DegreeReductionMatrix builds the constant n*n matrix A = B^-1 * P * B
// mod p used to reduce a degree-2t product sharing back to degree t.
// B[j][k] = (k+1)^j mod p and P is the diagonal projector with its first
// t entries set to 1 and the rest to 0. A depends only on (t, n, p).
func DegreeReductionMatrix(t, n int, p *big.Int) (Matrix, error) {
	b := NewMatrix(n, n)
	for j := 0; j < n; j++ {
		for k := 0; k < n; k++ {
			base := big.NewInt(int64(k + 1))
			b[j][k] = ModPow(base, big.NewInt(int64(j)), p)
		}
	}

	bInv, err := MatInvMod(b, p)
	if err != nil {
		return nil, err
	}

	proj := NewMatrix(n, n)
	for i := 0; i < n && i < t; i++ {
		proj[i][i] = new(big.Int).Set(big1)
	}

	tmp, err := MatMulMod(bInv, proj, p)
	if err != nil {
		return nil, err
	}
	return MatMulMod(tmp, b, p)
}

// BitsLE returns the little-endian bit expansion of n: bit 0 is the least
// significant bit. BitsLE(0) returns []int{0}.
func BitsLE(n *big.Int) []int {
	if n.Sign() == 0 {
		return []int{0}
	}
	v := new(big.Int).Set(n)
	var bits []int
	for v.Sign() > 0 {
		bits = append(bits, int(new(big.Int).And(v, big1).Int64()))
		v.Rsh(v, 1)
	}
	return bits
}

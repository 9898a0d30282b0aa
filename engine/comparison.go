package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Aukciszek/backend/field"
	"github.com/Aukciszek/backend/protoerr"
)

// CalcA requires at least two posted client shares and a freshly drawn
// random mask of l+k+1 bits (random_number_share); it computes the
// locally-held share of the masked comparand
// a = 2^(l+k+1) - r + 2^l + x - y mod p
// and stores it as the named share "comparison_a". The random mask is
// mandatory: several revisions of the source omitted it ("a = x - y"),
// which leaks the bid ordering directly.
func (e *Engine) CalcA(ctx context.Context, firstClientID, secondClientID, l, k int) error {
	_, _, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return err
	}

	x, ok := e.State.ClientShareByID(firstClientID)
	if !ok {
		return fmt.Errorf("%w: client %d has not posted a share", protoerr.ErrBadRequest, firstClientID)
	}
	y, ok := e.State.ClientShareByID(secondClientID)
	if !ok {
		return fmt.Errorf("%w: client %d has not posted a share", protoerr.ErrBadRequest, secondClientID)
	}

	r := e.State.RandomNumberShare()
	if r == nil {
		return fmt.Errorf("%w: random_number_share", protoerr.ErrNotInitialized)
	}

	a := new(big.Int)
	a.Lsh(big.NewInt(1), uint(l+k+1))
	a.Sub(a, r)
	a.Add(a, new(big.Int).Lsh(big.NewInt(1), uint(l)))
	a.Add(a, x)
	a.Sub(a, y)
	a.Mod(a, p)

	e.State.SetNamedShare("comparison_a", a)
	return nil
}

// OpenComparisonA reconstructs the masked value a.
func (e *Engine) OpenComparisonA(ctx context.Context) (*big.Int, error) {
	return e.Reconstruct(ctx, "comparison_a")
}

// PrepareZTables sets comparison_a_bits to the little-endian expansion of
// the opened mask, padded to length l+k+2 so comparison_a_bits[l] is
// always defined, and seeds z_table/Z_table[0..l) with the clear bits
// a_0..a_{l-1}.
func (e *Engine) PrepareZTables(openedA *big.Int, l, k int) error {
	bits := field.BitsLE(openedA)
	padded := make([]int, l+k+2)
	copy(padded, bits)
	e.State.SetComparisonABits(padded)
	return e.State.InitZTables(l)
}

// XorZTableAt XORs the public bit comparison_a_bits[i] against the shared
// bit random_number_bit_shares[i], replacing z_table[i] with the result.
// The public bit is represented as a dummy (degree-0) sharing so it flows
// through the same generic Add/Multiply/XOR primitives as a real share.
func (e *Engine) XorZTableAt(ctx context.Context, i int) error {
	aBit, err := e.State.ComparisonABit(i)
	if err != nil {
		return err
	}
	bits := e.State.RandomNumberBitShares()
	if i < 0 || i >= len(bits) {
		return fmt.Errorf("%w: random_number_bit_shares[%d] out of range", protoerr.ErrBadRequest, i)
	}

	aName := fmt.Sprintf("comparison_a_bit_%d", i)
	rName := fmt.Sprintf("random_number_bit_%d", i)
	e.State.SetNamedShare(aName, big.NewInt(int64(aBit)))
	e.State.SetNamedShare(rName, bits[i])

	if err := e.XOR(ctx, aName, rName, fmt.Sprintf("z_table_mul_%d", i)); err != nil {
		return err
	}
	return e.State.SetZTableAt(i, e.State.XorShare())
}

// InitZAndBigZ seeds the romb accumulator registers "z"/"Z" from
// z_table[l-1]/Z_table[l-1], once the per-bit XOR pass has filled
// z_table across all l indices.
func (e *Engine) InitZAndBigZ(l int) error {
	if l-1 < 0 || l-1 >= e.State.ZTableLen() {
		return fmt.Errorf("%w: l out of range", protoerr.ErrBadRequest)
	}
	z, err := e.State.ZTableAt(l - 1)
	if err != nil {
		return err
	}
	bigZ, err := e.State.BigZTableAt(l - 1)
	if err != nil {
		return err
	}
	e.State.SetNamedShare("z", z)
	e.State.SetNamedShare("Z", bigZ)
	return nil
}

// PrepareNextRomb shuffles the romb sweep's working registers ahead of
// processing bit index i: x,X take the current z,Z; y,Y take
// z_table[i-1],Z_table[i-1], or the constants 0,0 when i is 0.
func (e *Engine) PrepareNextRomb(i int) error {
	z, err := e.State.GetNamedShare("z")
	if err != nil {
		return err
	}
	bigZ, err := e.State.GetNamedShare("Z")
	if err != nil {
		return err
	}
	e.State.SetNamedShare("x", z)
	e.State.SetNamedShare("X", bigZ)

	if i == 0 {
		e.State.SetNamedShare("y", big.NewInt(0))
		e.State.SetNamedShare("Y", big.NewInt(0))
		return nil
	}

	y, err := e.State.ZTableAt(i - 1)
	if err != nil {
		return err
	}
	bigY, err := e.State.BigZTableAt(i - 1)
	if err != nil {
		return err
	}
	e.State.SetNamedShare("y", y)
	e.State.SetNamedShare("Y", bigY)
	return nil
}

// RombStep runs one sweep of the recurrence
// (x,X) diamond (y,Y) = (x*y, x*(X xor Y) xor X)
// against the current x,X,y,Y registers, then writes the updated
// accumulator back into z,Z.
func (e *Engine) RombStep(ctx context.Context) error {
	if err := e.Multiply(ctx, "x", "y", "z_new"); err != nil {
		return err
	}
	zNew, err := e.State.GetNamedShare("z_new")
	if err != nil {
		return err
	}

	if err := e.XOR(ctx, "X", "Y", "xy_mul"); err != nil {
		return err
	}
	e.State.SetNamedShare("xor_xy", e.State.XorShare())

	if err := e.Multiply(ctx, "x", "xor_xy", "z_mul2"); err != nil {
		return err
	}
	e.State.SetNamedShare("x_times_xor_xy", e.State.MultiplicativeShare())

	if err := e.XOR(ctx, "x_times_xor_xy", "X", "final_mul"); err != nil {
		return err
	}

	e.State.SetNamedShare("z", zNew)
	e.State.SetNamedShare("Z", e.State.XorShare())
	return nil
}

// PrepareResXors loads the final result's two operands: a_l (the clear
// bit comparison_a_bits[aIdx]) and r_l (the shared bit
// random_number_bit_shares[rIdx]).
func (e *Engine) PrepareResXors(aIdx, rIdx int) error {
	aBit, err := e.State.ComparisonABit(aIdx)
	if err != nil {
		return err
	}
	bits := e.State.RandomNumberBitShares()
	if rIdx < 0 || rIdx >= len(bits) {
		return fmt.Errorf("%w: random_number_bit_shares[%d] out of range", protoerr.ErrBadRequest, rIdx)
	}
	e.State.SetNamedShare("a_l", big.NewInt(int64(aBit)))
	e.State.SetNamedShare("r_l", bits[rIdx])
	return nil
}

// FinalizeComparisonResult computes res = a_l xor r_l xor Z and exposes
// it as the named share "res".
func (e *Engine) FinalizeComparisonResult(ctx context.Context) error {
	if err := e.XOR(ctx, "a_l", "r_l", "res_mul_1"); err != nil {
		return err
	}
	e.State.SetNamedShare("res_stage1", e.State.XorShare())

	if err := e.XOR(ctx, "res_stage1", "Z", "res_mul_2"); err != nil {
		return err
	}
	e.State.SetNamedShare("res", e.State.XorShare())
	return nil
}

// Compare runs the full comparison circuit against two client ids'
// posted shares and returns the reconstructed result bit: 1 iff
// first >= second, else 0.
func (e *Engine) Compare(ctx context.Context, firstClientID, secondClientID, l, k int) (*big.Int, error) {
	if err := e.CalcA(ctx, firstClientID, secondClientID, l, k); err != nil {
		return nil, err
	}
	opened, err := e.OpenComparisonA(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.PrepareZTables(opened, l, k); err != nil {
		return nil, err
	}
	for i := l - 1; i >= 0; i-- {
		if err := e.XorZTableAt(ctx, i); err != nil {
			return nil, err
		}
	}
	if err := e.InitZAndBigZ(l); err != nil {
		return nil, err
	}
	for i := l - 1; i >= 0; i-- {
		if err := e.PrepareNextRomb(i); err != nil {
			return nil, err
		}
		if err := e.RombStep(ctx); err != nil {
			return nil, err
		}
	}
	if err := e.PrepareResXors(l, l); err != nil {
		return nil, err
	}
	if err := e.FinalizeComparisonResult(ctx); err != nil {
		return nil, err
	}
	return e.Reconstruct(ctx, "res")
}

package engine_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aukciszek/backend/engine"
	"github.com/Aukciszek/backend/field"
)

// stageRandomNumber draws count fresh random bit shares across the whole
// harness via generateRandomBitStaged and folds them into each engine's
// random_number_bit_shares / random_number_share, exactly as
// Engine.GenerateRandomNumber does for a single node. Engine.CalcA now
// requires random_number_share to already be set and errors otherwise, so
// every caller of compareStaged must run this first.
func stageRandomNumber(t *testing.T, ctx context.Context, engines []*engine.Engine, tt int, p *big.Int, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		generateRandomBitStaged(t, ctx, engines, tt, p)
		for _, e := range engines {
			bit, err := e.State.GetNamedShare("bit")
			require.NoError(t, err)
			e.State.AppendRandomNumberBitShare(bit)
		}
	}
	for _, e := range engines {
		sum := new(big.Int)
		weight := big.NewInt(1)
		two := big.NewInt(2)
		for _, b := range e.State.RandomNumberBitShares() {
			term := new(big.Int).Mul(b, weight)
			sum.Add(sum, term)
			weight.Mul(weight, two)
		}
		sum.Mod(sum, p)
		e.State.SetRandomNumberShare(sum)
	}
}

// stagedRombStep replays RombStep's (x,X) diamond (y,Y) recurrence across
// the whole harness using runMultiplyRounds/stagedXor for its two
// Multiply and two XOR calls, per the reasoning in runMultiplyRounds.
func stagedRombStep(t *testing.T, ctx context.Context, engines []*engine.Engine, p *big.Int) {
	t.Helper()
	runMultiplyRounds(t, ctx, engines, "x", "y", "z_new")
	stagedXor(t, ctx, engines, p, "X", "Y", "xor_xy")
	runMultiplyRounds(t, ctx, engines, "x", "xor_xy", "x_times_xor_xy")
	stagedXor(t, ctx, engines, p, "x_times_xor_xy", "X", "Z_new")

	for _, e := range engines {
		zNew, err := e.State.GetNamedShare("z_new")
		require.NoError(t, err)
		bigZNew, err := e.State.GetNamedShare("Z_new")
		require.NoError(t, err)
		e.State.SetNamedShare("z", zNew)
		e.State.SetNamedShare("Z", bigZNew)
	}
}

// compareStaged runs the full bit-decomposition comparison circuit of
// Engine.Compare across the harness, substituting the staged Multiply/XOR
// helpers wherever Compare would call the single-node composites, and
// returns the reconstructed result: 1 iff firstBid >= secondBid.
func compareStaged(t *testing.T, ctx context.Context, engines []*engine.Engine, tt int, p *big.Int, firstBid, secondBid int64, l, k int) *big.Int {
	t.Helper()

	stageRandomNumber(t, ctx, engines, tt, p, l+k+1)

	firstPoints, err := field.Shamir(tt, len(engines), big.NewInt(firstBid), p)
	require.NoError(t, err)
	secondPoints, err := field.Shamir(tt, len(engines), big.NewInt(secondBid), p)
	require.NoError(t, err)
	for i, e := range engines {
		require.NoError(t, e.State.PutClientShare(1, firstPoints[i].Y))
		require.NoError(t, e.State.PutClientShare(2, secondPoints[i].Y))
	}

	for _, e := range engines {
		require.NoError(t, e.CalcA(ctx, 1, 2, l, k))
	}

	var opened *big.Int
	for _, e := range engines {
		v, err := e.OpenComparisonA(ctx)
		require.NoError(t, err)
		opened = v
	}

	for _, e := range engines {
		require.NoError(t, e.PrepareZTables(opened, l, k))
	}

	for i := l - 1; i >= 0; i-- {
		for _, e := range engines {
			aBit, err := e.State.ComparisonABit(i)
			require.NoError(t, err)
			bits := e.State.RandomNumberBitShares()
			e.State.SetNamedShare(fmt.Sprintf("comparison_a_bit_%d", i), big.NewInt(int64(aBit)))
			e.State.SetNamedShare(fmt.Sprintf("random_number_bit_%d", i), bits[i])
		}
		aName, rName := fmt.Sprintf("comparison_a_bit_%d", i), fmt.Sprintf("random_number_bit_%d", i)
		stagedXor(t, ctx, engines, p, aName, rName, "ztable_xor")
		for _, e := range engines {
			v, err := e.State.GetNamedShare("ztable_xor")
			require.NoError(t, err)
			require.NoError(t, e.State.SetZTableAt(i, v))
		}
	}

	for _, e := range engines {
		require.NoError(t, e.InitZAndBigZ(l))
	}

	for i := l - 1; i >= 0; i-- {
		for _, e := range engines {
			require.NoError(t, e.PrepareNextRomb(i))
		}
		stagedRombStep(t, ctx, engines, p)
	}

	for _, e := range engines {
		require.NoError(t, e.PrepareResXors(l, l))
	}
	stagedXor(t, ctx, engines, p, "a_l", "r_l", "res_stage1")
	stagedXor(t, ctx, engines, p, "res_stage1", "Z", "res")

	return reconstructFrom(t, engines, tt, p, "res")
}

// S2. p = 0x35, t = 1, n = 3, l = 3, k = 1. 21 < 23 reconstructs 0;
// 23 >= 21 reconstructs 1; equal bids (17, 17) reconstruct 1.
func TestCompareEndToEnd(t *testing.T) {
	p := big.NewInt(0x35)
	const tt, n, l, k = 1, 3, 3, 1
	ctx := context.Background()

	cases := []struct {
		name          string
		first, second int64
		want          int64
	}{
		{"21_lt_23", 21, 23, 0},
		{"23_ge_21", 23, 21, 1},
		{"equal_bids", 17, 17, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			engines := newHarness(t, tt, n, p)
			got := compareStaged(t, ctx, engines, tt, p, c.first, c.second, l, k)
			require.Equal(t, big.NewInt(c.want), got)
		})
	}
}

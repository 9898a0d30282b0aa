package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Aukciszek/backend/field"
	"github.com/Aukciszek/backend/protoerr"
	"github.com/Aukciszek/backend/state"
)

// RoundU samples u_k uniformly in [1, p-1], shares it as a degree-t
// polynomial, dispatches one point to each peer and keeps its own
// locally, mirroring Round Q's fan-out shape but against the shared_u
// array.
func (e *Engine) RoundU(ctx context.Context) ([]error, error) {
	t, n, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return nil, err
	}

	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	secret, err := field.SecureRandInt(big.NewInt(1), pMinus1)
	if err != nil {
		return nil, err
	}

	points, err := field.Shamir(t, n, secret, p)
	if err != nil {
		return nil, err
	}

	selfIndex := e.State.ID() - 1
	values := make([]*big.Int, n)
	for i, pt := range points {
		values[i] = pt.Y
	}
	e.State.SetOwnPeerShare(state.KindU, values[selfIndex])

	errs := fanOutShares(ctx, e.Peers, state.KindU, selfIndex, e.State.ID(), values)
	return errs, nil
}

// SharedUCalc requires shared_u to be fully populated; it sets the named
// share "u" to sum(shared_u) mod p.
func (e *Engine) SharedUCalc() error {
	_, _, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return err
	}
	if !e.State.AllFilled(state.KindU) {
		return fmt.Errorf("%w: shared_u is not fully populated", protoerr.ErrBadState)
	}
	sum := new(big.Int)
	for _, u := range e.State.PeerShares(state.KindU) {
		sum.Add(sum, u)
	}
	sum.Mod(sum, p)
	e.State.SetNamedShare("u", sum)
	return nil
}

const maxRandomBitAttempts = 64

// GenerateRandomBit runs the square-root-opening trick end to end: draw a
// shared u, square it, open v, take its smallest square root w, then
// (w^-1*u + 1) * 2^-1 is a shared uniform random bit. A non-positive
// opened v or a v with no square root mod p is a non-fatal retry
// condition; GenerateRandomBit retries up to maxRandomBitAttempts times
// before failing with protoerr.ErrInternal.
func (e *Engine) GenerateRandomBit(ctx context.Context) (*big.Int, error) {
	_, _, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxRandomBitAttempts; attempt++ {
		e.State.ResetCalculation()
		if _, err := e.RoundU(ctx); err != nil {
			return nil, err
		}
		if err := e.SharedUCalc(); err != nil {
			return nil, err
		}

		e.State.ResetCalculation()
		if err := e.Multiply(ctx, "u", "u", "v"); err != nil {
			return nil, err
		}

		v, err := e.Reconstruct(ctx, "v")
		if err != nil {
			return nil, err
		}
		if v.Sign() <= 0 {
			continue
		}

		w := field.SmallestSqrtMod(v, p)
		if w == nil {
			continue
		}

		wInv, err := field.ModInv(w, p)
		if err != nil {
			continue
		}
		e.State.SetNamedShare("w_inv", wInv)

		e.State.ResetCalculation()
		if err := e.Multiply(ctx, "w_inv", "u", "wu"); err != nil {
			return nil, err
		}

		e.State.SetNamedShare("one", big.NewInt(1))
		if err := e.Add("wu", "one"); err != nil {
			return nil, err
		}
		if err := e.CommitAdditive("wu_plus_one"); err != nil {
			return nil, err
		}

		halfInv, err := field.ModInv(big.NewInt(2), p)
		if err != nil {
			return nil, err
		}
		e.State.SetNamedShare("half", halfInv)

		e.State.ResetCalculation()
		if err := e.Multiply(ctx, "wu_plus_one", "half", "bit"); err != nil {
			return nil, err
		}

		bit, err := e.State.GetNamedShare("bit")
		if err != nil {
			return nil, err
		}
		return bit, nil
	}

	return nil, fmt.Errorf("%w: random-bit generation did not converge after %d attempts", protoerr.ErrInternal, maxRandomBitAttempts)
}

// GenerateRandomNumber draws count fresh random bit shares, stores each
// at its index in random_number_bit_shares, and sets
// random_number_share = sum(2^i * bit_i) mod p.
func (e *Engine) GenerateRandomNumber(ctx context.Context, count int) error {
	_, _, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		bit, err := e.GenerateRandomBit(ctx)
		if err != nil {
			return err
		}
		e.State.AppendRandomNumberBitShare(bit)
	}

	sum := new(big.Int)
	bits := e.State.RandomNumberBitShares()
	weight := big.NewInt(1)
	two := big.NewInt(2)
	for _, b := range bits {
		term := new(big.Int).Mul(b, weight)
		sum.Add(sum, term)
		weight.Mul(weight, two)
	}
	sum.Mod(sum, p)
	e.State.SetRandomNumberShare(sum)
	return nil
}

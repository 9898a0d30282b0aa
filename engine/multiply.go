package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Aukciszek/backend/field"
	"github.com/Aukciszek/backend/protoerr"
	"github.com/Aukciszek/backend/state"
)

// RoundQ samples q = Shamir(2t, n, 0, p) and dispatches one point to each
// peer, keeping this node's own point locally. Individual dispatch
// failures are returned but do not abort the round; the orchestrator
// decides whether to retry.
func (e *Engine) RoundQ(ctx context.Context) ([]error, error) {
	t, n, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return nil, err
	}
	if e.State.Status() != state.Initialized {
		return nil, fmt.Errorf("%w: round Q requires state Initialized, got %s", protoerr.ErrBadState, e.State.Status())
	}

	points, err := field.Shamir(2*t, n, big.NewInt(0), p)
	if err != nil {
		return nil, err
	}

	selfIndex := e.State.ID() - 1
	values := make([]*big.Int, n)
	for i, pt := range points {
		values[i] = pt.Y
	}
	e.State.SetOwnPeerShare(state.KindQ, values[selfIndex])

	errs := fanOutShares(ctx, e.Peers, state.KindQ, selfIndex, e.State.ID(), values)
	return errs, nil
}

// RoundR requires shared_q to be fully populated. It loads the two named
// operand shares, computes m = (first*second + sum(shared_q)) mod p,
// projects m through this node's row of A, and dispatches r[i] to each
// peer i, keeping r[id-1] locally.
func (e *Engine) RoundR(ctx context.Context, firstName, secondName string) ([]error, error) {
	_, n, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return nil, err
	}
	if e.State.Status() != state.QDistributed {
		return nil, fmt.Errorf("%w: round R requires shared_q fully populated", protoerr.ErrBadState)
	}

	first, err := e.State.GetNamedShare(firstName)
	if err != nil {
		return nil, err
	}
	second, err := e.State.GetNamedShare(secondName)
	if err != nil {
		return nil, err
	}

	m := new(big.Int).Mul(first, second)
	for _, q := range e.State.PeerShares(state.KindQ) {
		m.Add(m, q)
	}
	m.Mod(m, p)

	row := e.State.ARow()
	if row == nil {
		return nil, fmt.Errorf("%w: A", protoerr.ErrNotInitialized)
	}

	values := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		values[i] = new(big.Int).Mod(new(big.Int).Mul(m, row[i]), p)
	}

	selfIndex := e.State.ID() - 1
	e.State.SetOwnPeerShare(state.KindR, values[selfIndex])

	errs := fanOutShares(ctx, e.Peers, state.KindR, selfIndex, e.State.ID(), values)
	return errs, nil
}

// FinalizeMultiplicative requires shared_r to be fully populated. It sets
// multiplicative_share = sum(shared_r) mod p.
func (e *Engine) FinalizeMultiplicative() error {
	_, _, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return err
	}
	if e.State.Status() != state.RDistributed {
		return fmt.Errorf("%w: finalize requires shared_r fully populated", protoerr.ErrBadState)
	}

	sum := new(big.Int)
	for _, r := range e.State.PeerShares(state.KindR) {
		sum.Add(sum, r)
	}
	sum.Mod(sum, p)
	e.State.SetMultiplicativeShare(sum)
	return nil
}

// Multiply runs Round Q, Round R and Finalize back to back against the
// named operands, for callers (higher primitives, tests) that don't need
// to observe the intermediate orchestrator round boundary. Peer dispatch
// errors from either round are ignored here: callers needing partial-
// failure visibility should drive the rounds individually.
func (e *Engine) Multiply(ctx context.Context, firstName, secondName, outName string) error {
	e.State.ResetCalculation()
	if _, err := e.RoundQ(ctx); err != nil {
		return err
	}
	if _, err := e.RoundR(ctx, firstName, secondName); err != nil {
		return err
	}
	if err := e.FinalizeMultiplicative(); err != nil {
		return err
	}
	e.State.SetNamedShare(outName, e.State.MultiplicativeShare())
	return nil
}

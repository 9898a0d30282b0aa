// Package engine implements the multiplication, additive/XOR,
// random-bit/random-integer, comparison and reconstruction protocols on
// top of a *state.NodeState and a PeerClient used to reach the other n-1
// nodes.
package engine

import (
	"context"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/Aukciszek/backend/state"
)

// PeerClient is the node's view of its peers: dispatching one point of a
// redistribution round, and fetching a named share for reconstruction.
// package transport implements this over HTTP; tests implement it as a
// direct in-process call into sibling NodeState/Engine pairs.
type PeerClient interface {
	SendShare(ctx context.Context, peerIndex int, kind state.PeerShareKind, senderID int, value *big.Int) error
	FetchShare(ctx context.Context, peerIndex int, name string) (id int, value *big.Int, err error)
}

// Engine bundles a node's state with its peer transport. All protocol
// operations are methods on Engine.
type Engine struct {
	State  *state.NodeState
	Peers  PeerClient
}

// New returns an engine bound to the given state and peer transport.
func New(s *state.NodeState, peers PeerClient) *Engine {
	return &Engine{State: s, Peers: peers}
}

// dispatchResult captures the outcome of one peer dispatch in a fan-out
// round: errors are surfaced per-peer but never abort sibling dispatches,
// per the design note that round failures are the orchestrator's to
// retry, not the node's to suppress.
type dispatchResult struct {
	peerIndex int
	err       error
}

// fanOutShares sends values[i] to peer i for every i != selfIndex,
// writing values[selfIndex] directly into the node's own slot. It
// returns the per-peer errors (nil entries mean success); dispatch uses
// golang.org/x/sync/errgroup so calls progress concurrently but are
// gathered deterministically before returning.
func fanOutShares(ctx context.Context, peers PeerClient, kind state.PeerShareKind, selfIndex, selfID int, values []*big.Int) []error {
	n := len(values)
	errs := make([]error, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		if i == selfIndex {
			continue
		}
		i := i
		g.Go(func() error {
			err := peers.SendShare(gctx, i, kind, selfID, values[i])
			errs[i] = err
			return nil // never abort siblings on one peer's failure
		})
	}
	_ = g.Wait()
	return errs
}

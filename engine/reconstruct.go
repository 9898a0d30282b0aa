package engine

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/Aukciszek/backend/field"
	"github.com/Aukciszek/backend/protoerr"
)

// Reconstruct opens the named share: it samples t-1 peers uniformly from
// the other n-1 nodes, fetches each one's value of name along with its
// id, appends its own (id, value), computes Lagrange coefficients and
// returns the reconstructed secret. A peer that fails to respond, or
// responds with an out-of-range id, fails the whole reconstruction with
// protoerr.ErrPeerFailure.
func (e *Engine) Reconstruct(ctx context.Context, name string) (*big.Int, error) {
	t, n, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return nil, err
	}

	self := e.State.ID()
	own, err := e.State.GetNamedShare(name)
	if err != nil {
		return nil, err
	}

	others := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != self-1 {
			others = append(others, i)
		}
	}
	rand.Shuffle(len(others), func(i, j int) { others[i], others[j] = others[j], others[i] })
	need := t - 1
	if need > len(others) {
		need = len(others)
	}
	chosen := others[:need]

	points := make([]field.Point, 0, need+1)
	points = append(points, field.Point{X: big.NewInt(int64(self)), Y: own})

	for _, peerIndex := range chosen {
		id, v, err := e.Peers.FetchShare(ctx, peerIndex, name)
		if err != nil {
			return nil, fmt.Errorf("%w: peer %d: %v", protoerr.ErrPeerFailure, peerIndex+1, err)
		}
		if id < 1 || id > n {
			return nil, fmt.Errorf("%w: peer %d returned id %d out of range", protoerr.ErrPeerFailure, peerIndex+1, id)
		}
		points = append(points, field.Point{X: big.NewInt(int64(id)), Y: v})
	}

	coeffs, err := field.LagrangeCoeffs(points, p)
	if err != nil {
		return nil, err
	}
	return field.Reconstruct(points, coeffs, p), nil
}

// unsafeShareNames must never be exposed through return-share-to-
// reconstruct: opening them directly would leak raw client inputs or the
// per-round redistribution arrays rather than a derived result.
var unsafeShareNames = map[string]bool{
	"client_shares": true,
	"shared_q":      true,
	"shared_r":      true,
	"shared_u":      true,
}

// IsSafeShareName reports whether name may be returned by
// return-share-to-reconstruct.
func IsSafeShareName(name string) bool {
	return !unsafeShareNames[name]
}

package state_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aukciszek/backend/protoerr"
	"github.com/Aukciszek/backend/state"
)

func parties(n int) []string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "peer"
	}
	return ps
}

func TestInitDerivesTAndN(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Init(1, big.NewInt(0x17), parties(5)))

	tt, n, p, ps, err := s.GetInitialValues()
	require.NoError(t, err)
	require.Equal(t, 2, tt)
	require.Equal(t, 5, n)
	require.Equal(t, big.NewInt(0x17), p)
	require.Len(t, ps, 5)
}

func TestInitTwiceFails(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Init(1, big.NewInt(0x17), parties(5)))
	err := s.Init(1, big.NewInt(0x17), parties(5))
	require.ErrorIs(t, err, protoerr.ErrAlreadyInitialized)
}

// S3, store side. The Round-R-before-Round-Q guard lives in the engine
// (it checks Status()); ReceivePeerShare itself does not look at shared_q.
// Here a freshly initialized node reports Initialized, shared_q is not
// full, and shared_r holds no values.
func TestRoundGuardLeavesSharedRUntouched(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Init(1, big.NewInt(0xD), parties(5)))
	require.Equal(t, state.Initialized, s.Status())
	require.False(t, s.AllFilled(state.KindQ))

	for _, v := range s.PeerShares(state.KindR) {
		require.Nil(t, v)
	}
}

// S4. Duplicate receive-q from the same sender is rejected and the first
// payload survives.
func TestReceivePeerShareDuplicateRejected(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Init(1, big.NewInt(0x17), parties(5)))

	require.NoError(t, s.ReceivePeerShare(state.KindQ, 3, big.NewInt(11)))
	err := s.ReceivePeerShare(state.KindQ, 3, big.NewInt(99))
	require.ErrorIs(t, err, protoerr.ErrAlreadySet)

	got := s.PeerShares(state.KindQ)
	require.Equal(t, big.NewInt(11), got[2])
}

func TestReceivePeerShareBadSender(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Init(1, big.NewInt(0x17), parties(5)))
	err := s.ReceivePeerShare(state.KindQ, 6, big.NewInt(1))
	require.ErrorIs(t, err, protoerr.ErrBadRequest)
}

// Property 6 (factory-reset idempotence). Two consecutive factory-resets
// leave state identical to a freshly booted node.
func TestFactoryResetIdempotent(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Init(1, big.NewInt(0x17), parties(5)))
	require.NoError(t, s.ComputeA())
	require.NoError(t, s.PutClientShare(1, big.NewInt(7)))

	s.FactoryReset()
	require.Equal(t, state.NotInitialized, s.Status())

	s.FactoryReset()
	require.Equal(t, state.NotInitialized, s.Status())

	fresh := state.New()
	require.Equal(t, fresh.Status(), s.Status())
}

func TestPutClientShareDuplicateClientRejected(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Init(1, big.NewInt(0x17), parties(5)))
	require.NoError(t, s.PutClientShare(1, big.NewInt(7)))
	err := s.PutClientShare(1, big.NewInt(8))
	require.ErrorIs(t, err, protoerr.ErrBadRequest)
}

func TestBiddersInsertionOrder(t *testing.T) {
	s := state.New()
	require.NoError(t, s.Init(1, big.NewInt(0x17), parties(5)))
	require.NoError(t, s.PutClientShare(3, big.NewInt(1)))
	require.NoError(t, s.PutClientShare(1, big.NewInt(2)))
	require.Equal(t, []int{3, 1}, s.Bidders())
}

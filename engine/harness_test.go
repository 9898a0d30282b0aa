package engine_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aukciszek/backend/engine"
	"github.com/Aukciszek/backend/field"
	"github.com/Aukciszek/backend/state"
)

// localPeer routes SendShare/FetchShare directly into sibling NodeStates,
// simulating n honest nodes in one process without a network. One
// instance is shared by every engine in a harness since peerIndex alone
// picks the target.
type localPeer struct {
	engines []*engine.Engine
}

func (p *localPeer) SendShare(ctx context.Context, peerIndex int, kind state.PeerShareKind, senderID int, value *big.Int) error {
	return p.engines[peerIndex].State.ReceivePeerShare(kind, senderID, value)
}

func (p *localPeer) FetchShare(ctx context.Context, peerIndex int, name string) (int, *big.Int, error) {
	st := p.engines[peerIndex].State
	v, err := st.GetNamedShare(name)
	if err != nil {
		return 0, nil, err
	}
	return st.ID(), v, nil
}

// newHarness boots n in-process nodes sharing (t, n, p) and wires them to
// a single localPeer.
func newHarness(t *testing.T, tt, n int, p *big.Int) []*engine.Engine {
	t.Helper()
	parties := make([]string, n)
	for i := range parties {
		parties[i] = "node"
	}

	peer := &localPeer{}
	engines := make([]*engine.Engine, n)
	for i := 0; i < n; i++ {
		st := state.New()
		require.NoError(t, st.Init(i+1, p, parties))
		require.Equal(t, tt, st.Threshold())
		require.NoError(t, st.ComputeA())
		engines[i] = engine.New(st, peer)
	}
	peer.engines = engines
	return engines
}

// shareSecret distributes secret as a degree-t Shamir sharing across
// every engine in the harness under the given register name.
func shareSecret(t *testing.T, engines []*engine.Engine, tt int, p, secret *big.Int, name string) {
	t.Helper()
	points, err := field.Shamir(tt, len(engines), secret, p)
	require.NoError(t, err)
	for i, e := range engines {
		e.State.SetNamedShare(name, points[i].Y)
	}
}

// reconstructFrom gathers t+1 shares of name directly from the harness's
// own NodeStates (bypassing the peer-fetch machinery, since these nodes
// live in the same process) and reconstructs the secret.
func reconstructFrom(t *testing.T, engines []*engine.Engine, tt int, p *big.Int, name string) *big.Int {
	t.Helper()
	need := tt + 1
	points := make([]field.Point, 0, need)
	for i := 0; i < need; i++ {
		v, err := engines[i].State.GetNamedShare(name)
		require.NoError(t, err)
		points = append(points, field.Point{X: big.NewInt(int64(i + 1)), Y: v})
	}
	coeffs, err := field.LagrangeCoeffs(points, p)
	require.NoError(t, err)
	return field.Reconstruct(points, coeffs, p)
}

// runMultiplyRounds drives Round Q, Round R and Finalize across every
// engine in the harness in the same staged order an HTTP orchestrator
// would use (redistribute-q on every node, then redistribute-r on every
// node, then multiplicative/finalize on every node), and commits the
// result under outName. Engine.Multiply cannot be used directly here
// since it runs all three phases for a single node in one call, which
// only terminates correctly when every other node has already completed
// Round Q -- exactly the barrier this helper provides explicitly.
func runMultiplyRounds(t *testing.T, ctx context.Context, engines []*engine.Engine, firstName, secondName, outName string) {
	t.Helper()
	for _, e := range engines {
		e.State.ResetCalculation()
	}
	for _, e := range engines {
		_, err := e.RoundQ(ctx)
		require.NoError(t, err)
	}
	for _, e := range engines {
		_, err := e.RoundR(ctx, firstName, secondName)
		require.NoError(t, err)
	}
	for _, e := range engines {
		require.NoError(t, e.FinalizeMultiplicative())
		e.State.SetNamedShare(outName, e.State.MultiplicativeShare())
	}
}

// stagedXor computes [a xor b] = [a]+[b]-2*[a*b] mod p across every
// engine in the harness, using runMultiplyRounds for the multiply term,
// and commits the result under outName. See runMultiplyRounds for why
// Engine.XOR can't be driven directly across independent nodes here.
func stagedXor(t *testing.T, ctx context.Context, engines []*engine.Engine, p *big.Int, firstName, secondName, outName string) {
	t.Helper()
	for _, e := range engines {
		require.NoError(t, e.Add(firstName, secondName))
	}
	mulName := outName + "_mul"
	runMultiplyRounds(t, ctx, engines, firstName, secondName, mulName)
	for _, e := range engines {
		additive := e.State.AdditiveShare()
		mul, err := e.State.GetNamedShare(mulName)
		require.NoError(t, err)
		xor := new(big.Int).Sub(additive, new(big.Int).Mul(big.NewInt(2), mul))
		xor.Mod(xor, p)
		e.State.SetNamedShare(outName, xor)
	}
}

// S1. p = 0x17, t = 2, n = 5. Multiplying 7*2 reconstructs 14; adding
// 2+8 reconstructs 10.
func TestMultiplyAndAddEndToEnd(t *testing.T) {
	p := big.NewInt(0x17)
	const tt, n = 2, 5
	ctx := context.Background()

	engines := newHarness(t, tt, n, p)
	shareSecret(t, engines, tt, p, big.NewInt(7), "share1")
	shareSecret(t, engines, tt, p, big.NewInt(2), "share2")
	shareSecret(t, engines, tt, p, big.NewInt(8), "share3")

	runMultiplyRounds(t, ctx, engines, "share1", "share2", "product")
	got := reconstructFrom(t, engines, tt, p, "product")
	require.Equal(t, big.NewInt(14), got)

	for _, e := range engines {
		require.NoError(t, e.Add("share2", "share3"))
		require.NoError(t, e.CommitAdditive("sum"))
	}
	gotSum := reconstructFrom(t, engines, tt, p, "sum")
	require.Equal(t, big.NewInt(10), gotSum)
}

// S3. p = 0xD, t = 2, n = 5. A Round R request before any Round Q fails
// with BadState, and shared_r stays untouched.
func TestRoundRBeforeRoundQFails(t *testing.T) {
	p := big.NewInt(0xD)
	const tt, n = 2, 5
	ctx := context.Background()

	engines := newHarness(t, tt, n, p)
	shareSecret(t, engines, tt, p, big.NewInt(1), "x")
	shareSecret(t, engines, tt, p, big.NewInt(1), "y")

	_, err := engines[0].RoundR(ctx, "x", "y")
	require.Error(t, err)
	require.False(t, engines[0].State.AllFilled(state.KindR))
}

// XOR's documented formula, [a xor b] = [a] + [b] - 2*[a*b] mod p, tested
// end to end across the harness for every boolean combination. XOR is
// verified at the primitive level (Add + the staged multiply barrier)
// rather than through Engine.XOR directly, since XOR composes
// Engine.Multiply internally and a true multi-node run needs the same
// external Round-Q/Round-R barrier TestMultiplyAndAddEndToEnd uses.
func TestXorShareFormula(t *testing.T) {
	p := big.NewInt(0x17)
	const tt, n = 2, 5
	ctx := context.Background()

	cases := []struct{ a, b, want int64 }{
		{0, 0, 0},
		{0, 1, 1},
		{1, 0, 1},
		{1, 1, 0},
	}

	for _, c := range cases {
		engines := newHarness(t, tt, n, p)
		shareSecret(t, engines, tt, p, big.NewInt(c.a), "a")
		shareSecret(t, engines, tt, p, big.NewInt(c.b), "b")

		stagedXor(t, ctx, engines, p, "a", "b", "xor")

		got := reconstructFrom(t, engines, tt, p, "xor")
		require.Equal(t, big.NewInt(c.want), got, "xor(%d,%d)", c.a, c.b)
	}
}

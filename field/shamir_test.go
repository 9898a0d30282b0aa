package field_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aukciszek/backend/field"
)

// Property 10. Lagrange round-trip: reconstruct(shamir(t, n, k0, p)) == k0.
func TestLagrangeRoundTrip(t *testing.T) {
	p := bi(23)
	k0 := bi(7)

	points, err := field.Shamir(2, 5, k0, p)
	require.NoError(t, err)
	require.Len(t, points, 5)

	coeffs, err := field.LagrangeCoeffs(points[:3], p)
	require.NoError(t, err)
	got := field.Reconstruct(points[:3], coeffs, p)
	require.Equal(t, k0, got)
}

// S5. After compute-A for (t=2, n=5, p=0x17), A maps any degree-2
// point-evaluation vector to the evaluations of its truncation to the
// first t coefficients (here: the constant and linear terms); verified
// here via the defining identity A = B^-1 * P * B, i.e. B*A*B^-1 == P.
func TestDegreeReductionMatrixIdentity(t *testing.T) {
	p := bi(0x17)
	const tt, n = 2, 5

	a, err := field.DegreeReductionMatrix(tt, n, p)
	require.NoError(t, err)
	require.Len(t, a, n)
	require.Len(t, a[0], n)

	b := field.NewMatrix(n, n)
	for j := 0; j < n; j++ {
		for k := 0; k < n; k++ {
			base := big.NewInt(int64(k + 1))
			b[j][k] = field.ModPow(base, big.NewInt(int64(j)), p)
		}
	}
	bInv, err := field.MatInvMod(b, p)
	require.NoError(t, err)

	lhs, err := field.MatMulMod(b, a, p)
	require.NoError(t, err)
	lhs, err = field.MatMulMod(lhs, bInv, p)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := int64(0)
			if i == j && i < tt {
				want = 1
			}
			require.Equal(t, bi(want), lhs[i][j], "entry (%d,%d)", i, j)
		}
	}
}

func TestSmallestSqrtMod(t *testing.T) {
	p := bi(0x35) // 53, prime, 53 mod 4 == 1
	v := bi(4)
	w := field.SmallestSqrtMod(v, p)
	require.NotNil(t, w)
	sq := new(big.Int).Mod(new(big.Int).Mul(w, w), p)
	require.Equal(t, new(big.Int).Mod(v, p), sq)
}

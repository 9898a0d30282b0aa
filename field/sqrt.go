package field

import "math/big"

// SmallestSqrtMod returns the smaller of the two square roots of v mod p
// (p prime), or nil if v is not a quadratic residue mod p. Used by the
// random-bit engine to open w = sqrt(v) after squaring a shared value.
func SmallestSqrtMod(v, p *big.Int) *big.Int {
	reduced := new(big.Int).Mod(v, p)
	root := new(big.Int).ModSqrt(reduced, p)
	if root == nil {
		return nil
	}
	other := new(big.Int).Sub(p, root)
	if other.Cmp(root) < 0 {
		return other
	}
	return root
}

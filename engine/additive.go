package engine

import (
	"context"
	"math/big"
)

// Add sets additive_share = (first + second) mod p from two named
// operand shares.
func (e *Engine) Add(firstName, secondName string) error {
	_, _, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return err
	}
	first, err := e.State.GetNamedShare(firstName)
	if err != nil {
		return err
	}
	second, err := e.State.GetNamedShare(secondName)
	if err != nil {
		return err
	}
	sum := new(big.Int).Mod(new(big.Int).Add(first, second), p)
	e.State.SetAdditiveShare(sum)
	return nil
}

// CommitAdditive copies the last additive_share into a named register.
func (e *Engine) CommitAdditive(name string) error {
	v := e.State.AdditiveShare()
	if v == nil {
		return errNotSet("additive_share")
	}
	e.State.SetNamedShare(name, v)
	return nil
}

// XOR computes [a xor b] = [a] + [b] - 2*[a*b] mod p for bit-valued
// shares a, b: Add(first, second), Multiply(first, second), then combine.
func (e *Engine) XOR(ctx context.Context, firstName, secondName, mulOutName string) error {
	_, _, p, _, err := e.State.GetInitialValues()
	if err != nil {
		return err
	}
	if err := e.Add(firstName, secondName); err != nil {
		return err
	}
	additive := e.State.AdditiveShare()
	if err := e.Multiply(ctx, firstName, secondName, mulOutName); err != nil {
		return err
	}

	mul := e.State.MultiplicativeShare()
	two := big.NewInt(2)

	xor := new(big.Int).Mod(new(big.Int).Sub(additive, new(big.Int).Mul(two, mul)), p)
	e.State.SetXorShare(xor)
	return nil
}

// CommitXor copies the last xor_share into a named register.
func (e *Engine) CommitXor(name string) error {
	v := e.State.XorShare()
	if v == nil {
		return errNotSet("xor_share")
	}
	e.State.SetNamedShare(name, v)
	return nil
}

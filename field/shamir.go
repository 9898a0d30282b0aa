package field

import (
	"math/big"
)

// Point is one share: an evaluation (X, Y) of a secret polynomial at X,
// reduced mod p.
type Point struct {
	X *big.Int
	Y *big.Int
}

// polynomial is f(x) = Coefficients[0] + Coefficients[1]*x + ... over Fp,
// kept internal because callers only ever need Shamir's sampled points,
// never the polynomial itself.
type polynomial struct {
	coefficients []*big.Int
	p            *big.Int
}

// newPolynomial samples a degree-t polynomial with constant term k0: the
// middle coefficients are drawn uniformly from [0, p), and the leading
// coefficient is resampled until it is non-zero so the polynomial truly
// has degree t.
func newPolynomial(k0 *big.Int, t int, p *big.Int) (*polynomial, error) {
	coeffs := make([]*big.Int, t+1)
	coeffs[0] = new(big.Int).Mod(k0, p)

	pMinus1 := new(big.Int).Sub(p, big1)
	for i := 1; i < t; i++ {
		c, err := SecureRandInt(big0, pMinus1)
		if err != nil {
			return nil, err
		}
		coeffs[i] = c
	}

	if t > 0 {
		for {
			c, err := SecureRandInt(big1, pMinus1)
			if err != nil {
				return nil, err
			}
			if c.Sign() != 0 {
				coeffs[t] = c
				break
			}
		}
	}

	return &polynomial{coefficients: coeffs, p: p}, nil
}

// evaluate computes f(x) mod p via Horner's method.
func (poly *polynomial) evaluate(x *big.Int) *big.Int {
	acc := new(big.Int)
	for i := len(poly.coefficients) - 1; i >= 0; i-- {
		acc.Mul(acc, x)
		acc.Add(acc, poly.coefficients[i])
		acc.Mod(acc, poly.p)
	}
	return acc
}

// Shamir samples a degree-t polynomial f with f(0) = k0 mod p and returns
// the n points (1, f(1)), ..., (n, f(n)).
func Shamir(t, n int, k0 *big.Int, p *big.Int) ([]Point, error) {
	poly, err := newPolynomial(k0, t, p)
	if err != nil {
		return nil, err
	}
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		x := big.NewInt(int64(i + 1))
		points[i] = Point{X: x, Y: poly.evaluate(x)}
	}
	return points, nil
}

// LagrangeCoeffs returns the Lagrange coefficient L_i for each point i,
// for interpolation of f(0) given points[i] = (x_i, f(x_i)).
func LagrangeCoeffs(points []Point, p *big.Int) ([]*big.Int, error) {
	coeffs := make([]*big.Int, len(points))
	for i := range points {
		li := new(big.Int).Set(big1)
		xi := points[i].X
		for j := range points {
			if i == j {
				continue
			}
			xj := points[j].X
			diff := new(big.Int).Sub(xj, xi)
			diff.Mod(diff, p)
			inv, err := ModInv(diff, p)
			if err != nil {
				return nil, err
			}
			li.Mul(li, xj)
			li.Mod(li, p)
			li.Mul(li, inv)
			li.Mod(li, p)
		}
		coeffs[i] = li
	}
	return coeffs, nil
}

// Reconstruct evaluates sum(y_i * L_i) mod p given matching points and
// Lagrange coefficients.
func Reconstruct(points []Point, coeffs []*big.Int, p *big.Int) *big.Int {
	acc := new(big.Int)
	term := new(big.Int)
	for i, pt := range points {
		term.Mul(pt.Y, coeffs[i])
		acc.Add(acc, term)
	}
	return acc.Mod(acc, p)
}

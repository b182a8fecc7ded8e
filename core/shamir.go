package core

// GF(256) Shamir secret sharing, byte-wise over the DEK, used by
// WrapDEK/UnwrapDEK in crypto.go. No pack dependency provides secret
// sharing (checked go-ethereum, libp2p, hashicorp deps in the examples);
// this is the one core primitive implemented from scratch rather than
// wired to a third-party library, per DESIGN.md's standard-library
// justifications.

import "crypto/rand"

// gf256 is the field used by AES itself: x^8 + x^4 + x^3 + x + 1 (0x11b).
const gf256Poly = 0x11b

func gfMul(a, b byte) byte {
	var p byte
	for i := 0; i < 8; i++ {
		if b&1 != 0 {
			p ^= a
		}
		hi := a & 0x80
		a <<= 1
		if hi != 0 {
			a ^= byte(gf256Poly)
		}
		b >>= 1
	}
	return p
}

func gfPow(a byte, n int) byte {
	r := byte(1)
	for i := 0; i < n; i++ {
		r = gfMul(r, a)
	}
	return r
}

// gfInv returns the multiplicative inverse of a in GF(256), a != 0.
func gfInv(a byte) byte {
	// a^254 = a^-1 in GF(256) since the multiplicative group has order 255.
	return gfPow(a, 254)
}

func gfDiv(a, b byte) byte {
	return gfMul(a, gfInv(b))
}

// shamirShare is one (x, y-bytes) point on the degree-(t-1) polynomials,
// one polynomial per byte of the secret.
type shamirShare struct {
	X byte
	Y []byte
}

func (s shamirShare) Bytes() []byte {
	return append([]byte{s.X}, s.Y...)
}

func shamirShareFromBytes(b []byte) shamirShare {
	if len(b) == 0 {
		return shamirShare{}
	}
	return shamirShare{X: b[0], Y: append([]byte(nil), b[1:]...)}
}

// shamirSplit splits secret into n shares requiring threshold to
// reconstruct. X coordinates are 1..n so 0 is never used (0 is reserved
// for evaluating the secret itself).
func shamirSplit(secret []byte, threshold, n int) ([]shamirShare, error) {
	if threshold < 1 || n < threshold || n > 255 {
		return nil, FormatError("invalid shamir (threshold, n) parameters", nil)
	}
	coeffs := make([][]byte, len(secret))
	for i, s0 := range secret {
		c := make([]byte, threshold)
		c[0] = s0
		if threshold > 1 {
			if _, err := rand.Read(c[1:]); err != nil {
				return nil, IOError("generate shamir coefficients", err)
			}
		}
		coeffs[i] = c
	}

	shares := make([]shamirShare, n)
	for i := 0; i < n; i++ {
		x := byte(i + 1)
		y := make([]byte, len(secret))
		for j := range secret {
			y[j] = evalPoly(coeffs[j], x)
		}
		shares[i] = shamirShare{X: x, Y: y}
	}
	return shares, nil
}

func evalPoly(coeffs []byte, x byte) byte {
	// Horner's method over GF(256).
	var result byte
	for i := len(coeffs) - 1; i >= 0; i-- {
		result = gfMul(result, x) ^ coeffs[i]
	}
	return result
}

// shamirCombine reconstructs the secret from shares via Lagrange
// interpolation at x=0.
func shamirCombine(shares []shamirShare) []byte {
	if len(shares) == 0 {
		return nil
	}
	secretLen := len(shares[0].Y)
	out := make([]byte, secretLen)
	for byteIdx := 0; byteIdx < secretLen; byteIdx++ {
		var acc byte
		for i, si := range shares {
			num := byte(1)
			den := byte(1)
			for j, sj := range shares {
				if i == j {
					continue
				}
				num = gfMul(num, sj.X)
				den = gfMul(den, sj.X^si.X)
			}
			term := gfMul(si.Y[byteIdx], gfDiv(num, den))
			acc ^= term
		}
		out[byteIdx] = acc
	}
	return out
}

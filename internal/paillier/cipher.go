package paillier

import (
	"fmt"
	"io"
	"math/big"

	"github.com/encql/encql/internal/bignum"
)

// Encrypt computes c = g^m * r^n mod n^2 for a random r drawn from reader,
// coprime to n. m must satisfy 0 <= m < n.
func (pub *PublicKey) Encrypt(reader io.Reader, m *big.Int) (*big.Int, error) {
	if m.Sign() < 0 || m.Cmp(pub.N) >= 0 {
		return nil, fmt.Errorf("paillier: Encrypt: plaintext out of range [0, n)")
	}

	var r *big.Int
	for {
		var err error
		r, err = bignum.RandRange(reader, pub.N)
		if err != nil {
			return nil, fmt.Errorf("paillier: Encrypt: %w", err)
		}
		if r.Sign() == 0 {
			continue
		}
		if bignum.GCD(r, pub.N).Cmp(big.NewInt(1)) == 0 {
			break
		}
	}

	gm := new(big.Int).Exp(pub.G, m, pub.NSquare)
	rn := new(big.Int).Exp(r, pub.N, pub.NSquare)
	c := new(big.Int).Mod(new(big.Int).Mul(gm, rn), pub.NSquare)
	return c, nil
}

// lFunction computes L(x) = (x-1)/n, the standard Paillier decryption helper.
func lFunction(x, n *big.Int) *big.Int {
	num := new(big.Int).Sub(x, big.NewInt(1))
	return new(big.Int).Div(num, n)
}

// Decrypt recovers the plaintext m in [0, n) encrypted under pub.
func (priv *PrivateKey) Decrypt(c *big.Int) (*big.Int, error) {
	if c.Sign() < 0 || c.Cmp(priv.NSquare) >= 0 {
		return nil, fmt.Errorf("paillier: Decrypt: ciphertext out of range [0, n^2)")
	}
	cl := new(big.Int).Exp(c, priv.Lambda, priv.NSquare)
	m := new(big.Int).Mod(new(big.Int).Mul(lFunction(cl, priv.N), priv.Mu), priv.N)
	return m, nil
}

// Add homomorphically combines two ciphertexts into an encryption of the
// sum of their plaintexts: E(a) * E(b) = E(a+b).
func (pub *PublicKey) Add(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Mul(a, b), pub.NSquare)
}

// Affine computes an encryption of a*m + b given an encryption of m, a
// plaintext multiplier a, and a plaintext addend b: E(m)^a * g^b = E(a*m+b).
func (pub *PublicKey) Affine(c *big.Int, a, b *big.Int) *big.Int {
	scaled := new(big.Int).Exp(c, a, pub.NSquare)
	shifted := new(big.Int).Exp(pub.G, b, pub.NSquare)
	return new(big.Int).Mod(new(big.Int).Mul(scaled, shifted), pub.NSquare)
}

// Package paillier implements the Paillier additive homomorphic cryptosystem
// used to encrypt integer and floating point columns so the server can
// evaluate SUM/AVG over ciphertexts without ever seeing plaintext values.
package paillier

import (
	"fmt"
	"io"
	"math/big"

	"github.com/encql/encql/internal/bignum"
)

const (
	// NLength is the bit length the modulus n must land on exactly.
	NLength = 1024
	// primeBits is half of NLength, so p*q has NLength or NLength-1 bits;
	// pairs whose product falls short of NLength bits are rejected and retried.
	primeBits = NLength / 2

	// PackingLimit is the maximum number of int64 values that fit in one
	// multi-value ciphertext lane packing.
	PackingLimit = 7
	// PackingBitSize is the width reserved per lane when packing multiple
	// int64 values into a single plaintext.
	PackingBitSize = 128
)

// PublicKey holds the values needed to encrypt and homomorphically combine
// ciphertexts.
type PublicKey struct {
	N       *big.Int
	G       *big.Int
	NSquare *big.Int
}

// PrivateKey holds the values needed to decrypt. It embeds the matching
// PublicKey.
type PrivateKey struct {
	PublicKey
	Lambda *big.Int
	Mu     *big.Int
}

// GenerateKey derives a keypair deterministically from reader (typically a
// symcrypto.PRG seeded from a role-specific key, so the same seed always
// yields the same key — load-bearing for reproducible schema rewriting
// across load/query invocations against the same table).
func GenerateKey(reader io.Reader) (*PrivateKey, error) {
	one := big.NewInt(1)
	for {
		p, err := bignum.GetPrime(reader, primeBits)
		if err != nil {
			return nil, fmt.Errorf("paillier: generating p: %w", err)
		}
		q, err := bignum.GetPrime(reader, primeBits)
		if err != nil {
			return nil, fmt.Errorf("paillier: generating q: %w", err)
		}
		if p.Cmp(q) == 0 {
			continue
		}

		n := new(big.Int).Mul(p, q)
		if n.BitLen() != NLength {
			continue
		}

		pMinus1 := new(big.Int).Sub(p, one)
		qMinus1 := new(big.Int).Sub(q, one)
		lambda := new(big.Int).Mul(pMinus1, qMinus1)

		nSquare := new(big.Int).Mul(n, n)
		g := new(big.Int).Add(n, one) // g = n+1 always has order n mod n^2

		// For g = n+1, L(g^lambda mod n^2) = lambda mod n, so mu is its
		// inverse directly without the general L() evaluation.
		lambdaModN := new(big.Int).Mod(lambda, n)
		mu, err := bignum.ModInverse(lambdaModN, n)
		if err != nil {
			continue
		}

		pub := PublicKey{N: n, G: g, NSquare: nSquare}
		return &PrivateKey{PublicKey: pub, Lambda: lambda, Mu: mu}, nil
	}
}

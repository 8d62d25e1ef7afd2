// Package bignum implements the number-theoretic primitives the Paillier
// and symmetric-cipher layers build on: modular inverses, rejection-sampled
// ranged randomness, and Miller-Rabin prime generation. Every randomness
// consumer takes an io.Reader so key derivation can run over a seeded PRG
// instead of crypto/rand when determinism is required.
package bignum

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
)

var (
	errNotInvertible = errors.New("bignum: not invertible")
	one              = big.NewInt(1)
	two              = big.NewInt(2)
)

// GCD returns the greatest common divisor of a and b. Both must be
// non-negative.
func GCD(a, b *big.Int) *big.Int {
	g := new(big.Int)
	g.GCD(nil, nil, a, b)
	return g
}

// ExtendedGCD returns (g, x, y) such that a*x + b*y = g = gcd(a, b).
func ExtendedGCD(a, b *big.Int) (g, x, y *big.Int) {
	g, x, y = new(big.Int), new(big.Int), new(big.Int)
	g.GCD(x, y, a, b)
	return g, x, y
}

// ModInverse returns x such that a*x ≡ 1 (mod m), or an error if a and m
// are not coprime.
func ModInverse(a, m *big.Int) (*big.Int, error) {
	inv := new(big.Int).ModInverse(a, m)
	if inv == nil {
		return nil, fmt.Errorf("bignum: modular inverse of %s mod %s: %w", a, m, errNotInvertible)
	}
	return inv, nil
}

// RandRange returns a uniformly random integer in [0, maxExclusive) drawn
// from reader, using rejection sampling against the smallest power-of-two
// range that covers maxExclusive. reader must produce independent,
// uniformly distributed bytes (crypto/rand.Reader, or a seeded PRG for
// reproducible derivation).
func RandRange(reader io.Reader, maxExclusive *big.Int) (*big.Int, error) {
	if maxExclusive.Sign() <= 0 {
		return nil, fmt.Errorf("bignum: RandRange: maxExclusive must be positive, got %s", maxExclusive)
	}
	bitLen := maxExclusive.BitLen()
	byteLen := (bitLen + 7) / 8
	if byteLen == 0 {
		byteLen = 1
	}
	// Mask off the excess bits in the top byte so acceptance odds stay at or above 50%.
	excessBits := byteLen*8 - bitLen
	mask := byte(0xff)
	if excessBits > 0 {
		mask = byte(0xff >> uint(excessBits))
	}

	buf := make([]byte, byteLen)
	for {
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, fmt.Errorf("bignum: RandRange: reading randomness: %w", err)
		}
		if byteLen > 0 {
			buf[0] &= mask
		}
		candidate := new(big.Int).SetBytes(buf)
		if candidate.Cmp(maxExclusive) < 0 {
			return candidate, nil
		}
	}
}

// IsPrime reports whether n is probably prime, running rounds independent
// Miller-Rabin trials. Values below 2 and even values other than 2 are
// reported composite, and 2 and 3 prime, without any trial.
func IsPrime(reader io.Reader, n *big.Int, rounds int) (bool, error) {
	if n.Cmp(two) < 0 {
		return false, nil
	}
	if n.Cmp(two) == 0 || n.Cmp(big.NewInt(3)) == 0 {
		return true, nil
	}
	if n.Bit(0) == 0 {
		return false, nil
	}

	nMinus1 := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nMinus1)
	r := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		r++
	}

	nMinus3 := new(big.Int).Sub(n, big.NewInt(3))
	for i := 0; i < rounds; i++ {
		a, err := RandRange(reader, nMinus3)
		if err != nil {
			return false, err
		}
		a.Add(a, two) // a in [2, n-2]

		x := new(big.Int).Exp(a, d, n)
		if x.Cmp(one) == 0 || x.Cmp(nMinus1) == 0 {
			continue
		}

		witness := true
		for j := 0; j < r-1; j++ {
			x.Mul(x, x)
			x.Mod(x, n)
			if x.Cmp(nMinus1) == 0 {
				witness = false
				break
			}
		}
		if witness {
			return false, nil
		}
	}
	return true, nil
}

// MillerRabinRounds returns the number of independent trials needed to
// push the false-positive probability below eps, i.e. ceil(-ln(eps)/ln(4)).
func MillerRabinRounds(eps float64) int {
	return int(math.Ceil(-math.Log(eps) / math.Log(4)))
}

// GetPrime returns a random bits-bit prime drawn from reader, with error
// probability at most 2^-64 per the Miller-Rabin round count.
func GetPrime(reader io.Reader, bits int) (*big.Int, error) {
	if bits < 2 {
		return nil, fmt.Errorf("bignum: GetPrime: bits must be >= 2, got %d", bits)
	}
	rounds := MillerRabinRounds(math.Pow(2, -64))
	lower := new(big.Int).Lsh(one, uint(bits-1))
	upper := new(big.Int).Lsh(one, uint(bits))
	span := new(big.Int).Sub(upper, lower)

	for {
		offset, err := RandRange(reader, span)
		if err != nil {
			return nil, err
		}
		candidate := new(big.Int).Add(lower, offset)
		candidate.SetBit(candidate, 0, 1)     // force odd
		candidate.SetBit(candidate, bits-1, 1) // force top bit, keep bit length exact

		prime, err := IsPrime(reader, candidate, rounds)
		if err != nil {
			return nil, err
		}
		if prime {
			return candidate, nil
		}
	}
}

// LongToBytes renders n as a big-endian byte string packed in 4-byte limbs,
// left-padded with zero limbs up to at least minLen bytes.
func LongToBytes(n *big.Int, minLen int) []byte {
	raw := n.Bytes()
	limbLen := ((len(raw) + 3) / 4) * 4
	if limbLen == 0 {
		limbLen = 4
	}
	for limbLen < minLen {
		limbLen += 4
	}
	out := make([]byte, limbLen)
	copy(out[limbLen-len(raw):], raw)
	return out
}

// BytesToLong parses a big-endian byte string into an integer.
func BytesToLong(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

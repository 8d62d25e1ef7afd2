package paillier

import (
	"fmt"
	"io"
	"math"
	"math/big"
)

// Bit layout for an encrypted float64, LSB offsets into the plaintext
// integer. The value region is a two's-complement fixed-point number
// (floatScaleBits fractional bits) embedded across the much wider
// floatEmbedBits region, so a bounded homomorphic SUM can grow into that
// headroom without silently wrapping. NaN and the two infinities each count
// into their own floatStep-bit lane above the embed region, so they survive
// encryption/decryption and homomorphic addition rather than being stored
// as a sentinel fixed-point value. floatScaleBits is the exponent reference
// 389 plus 52 mantissa bits, so magnitudes below 2^-441 round to zero.
const (
	floatValueBits   = 831
	floatScaleBits   = 441
	floatStep        = 32                          // overflow is detectable below 2^floatStep homomorphic adds
	floatEmbedBits   = floatValueBits + 2*floatStep // 895
	floatMinusInfLSB = floatEmbedBits + floatStep   // 927
	floatPlusInfLSB  = floatMinusInfLSB + floatStep // 959
	floatNaNLSB      = floatPlusInfLSB + floatStep  // 991
)

var floatScale = new(big.Int).Lsh(big.NewInt(1), floatScaleBits)

// floatValueLimit is the largest magnitude a signed floatValueBits-bit
// two's-complement integer can hold, i.e. 2^(floatValueBits-1).
var floatValueLimit = new(big.Int).Lsh(big.NewInt(1), floatValueBits-1)

// ErrExponentRange is returned by EncryptFloat when a finite float's scaled
// fixed-point representation no longer fits the value region, meaning its
// magnitude is too large to be packed alongside the other lanes. Values too
// small for the fixed-point scale are not rejected; they round to zero.
var ErrExponentRange = fmt.Errorf("paillier: float exponent out of representable range")

// EncryptFloat encrypts a float64, including NaN and +/-Inf.
func (pub *PublicKey) EncryptFloat(reader io.Reader, f float64) (*big.Int, error) {
	plaintext := new(big.Int)

	switch {
	case math.IsNaN(f):
		plaintext.SetBit(plaintext, floatNaNLSB, 1)
	case math.IsInf(f, 1):
		plaintext.SetBit(plaintext, floatPlusInfLSB, 1)
	case math.IsInf(f, -1):
		plaintext.SetBit(plaintext, floatMinusInfLSB, 1)
	default:
		scaled := new(big.Float).SetPrec(200).Mul(big.NewFloat(f), new(big.Float).SetInt(floatScale))
		intVal, _ := scaled.Int(nil)
		if new(big.Int).Abs(intVal).Cmp(floatValueLimit) >= 0 {
			return nil, fmt.Errorf("%w: %g", ErrExponentRange, f)
		}
		region := embedTwosComplement(intVal, floatEmbedBits)
		plaintext.Or(plaintext, region)
	}

	return pub.Encrypt(reader, plaintext)
}

// DecryptFloat decrypts a ciphertext produced by EncryptFloat, or one
// derived from it via Add/Affine. If the fixed-point value region has
// overflowed its guard headroom the result saturates to +/-Inf rather than
// returning an error, mirroring how IEEE-754 arithmetic itself saturates.
func (priv *PrivateKey) DecryptFloat(c *big.Int) (float64, error) {
	m, err := priv.Decrypt(c)
	if err != nil {
		return 0, err
	}

	laneMask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), floatStep), big.NewInt(1))
	laneSet := func(lsb int) bool {
		return new(big.Int).And(new(big.Int).Rsh(m, uint(lsb)), laneMask).Sign() != 0
	}
	nan, plusInf, minusInf := laneSet(floatNaNLSB), laneSet(floatPlusInfLSB), laneSet(floatMinusInfLSB)
	if nan || (plusInf && minusInf) {
		return math.NaN(), nil
	}
	if plusInf {
		return math.Inf(1), nil
	}
	if minusInf {
		return math.Inf(-1), nil
	}

	sign := m.Bit(floatValueBits - 1)
	for i := floatValueBits - 1; i < floatEmbedBits; i++ {
		if m.Bit(i) != sign {
			if sign == 1 {
				return math.Inf(-1), nil
			}
			return math.Inf(1), nil
		}
	}

	region := new(big.Int).And(m, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), floatValueBits), big.NewInt(1)))
	value := extractTwosComplement(region, floatValueBits)

	quotient := new(big.Float).SetPrec(200).Quo(new(big.Float).SetInt(value), new(big.Float).SetInt(floatScale))
	f, _ := quotient.Float64()
	return f, nil
}

// embedTwosComplement maps a signed integer into a non-negative integer in
// [0, 2^width) using width-bit two's complement.
func embedTwosComplement(v *big.Int, width int) *big.Int {
	if v.Sign() >= 0 {
		return new(big.Int).Set(v)
	}
	return new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), uint(width)), v)
}

// extractTwosComplement reverses embedTwosComplement.
func extractTwosComplement(region *big.Int, width int) *big.Int {
	if region.Bit(width-1) == 0 {
		return new(big.Int).Set(region)
	}
	return new(big.Int).Sub(region, new(big.Int).Lsh(big.NewInt(1), uint(width)))
}

package paillier

import (
	"fmt"
	"io"
	"math/big"
)

// int64Bits is the width of the two's-complement region an int64 plaintext
// is embedded into before encryption. The extra 32 bits of headroom above
// the 64 value bits let the server homomorphically SUM a bounded number of
// encrypted rows without the result wrapping silently; DecryptInt64 checks
// that headroom stayed sign-consistent and reports OverflowError otherwise.
const int64Bits = 96

var int64RegionMod = new(big.Int).Lsh(big.NewInt(1), int64Bits) // 2^96

// ErrOverflow is returned by DecryptInt64/DecryptMultipleInt64s when the
// accumulated plaintext no longer fits back into the embedded width,
// meaning a homomorphic SUM overflowed its headroom.
var ErrOverflow = fmt.Errorf("paillier: decrypted value overflowed its packed width")

// toTwosComplement96 embeds a signed int64 as a non-negative integer in
// [0, 2^96) using two's complement representation.
func toTwosComplement96(v int64) *big.Int {
	if v >= 0 {
		return big.NewInt(v)
	}
	return new(big.Int).Add(int64RegionMod, big.NewInt(v))
}

// fromTwosComplement96 reverses toTwosComplement96, checking that bits
// [63, 96) are all equal (sign-consistent) before sign-extending bit 63
// back out into an int64. A failed consistency check means the value grew
// past what int64Bits can represent, i.e. it overflowed during a
// homomorphic SUM.
func fromTwosComplement96(region *big.Int) (int64, error) {
	sign := region.Bit(63)
	for i := 63; i < int64Bits; i++ {
		if region.Bit(i) != sign {
			return 0, ErrOverflow
		}
	}
	low64 := new(big.Int).And(region, new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1)))
	if sign == 1 {
		low64.Sub(low64, new(big.Int).Lsh(big.NewInt(1), 64))
	}
	return low64.Int64(), nil
}

// EncryptInt64 encrypts a single int64 value.
func (pub *PublicKey) EncryptInt64(reader io.Reader, v int64) (*big.Int, error) {
	return pub.Encrypt(reader, toTwosComplement96(v))
}

// DecryptInt64 decrypts a ciphertext produced by EncryptInt64, or one
// derived from it via Add/Affine, returning ErrOverflow if the 96-bit
// embedded region is no longer sign-consistent.
func (priv *PrivateKey) DecryptInt64(c *big.Int) (int64, error) {
	m, err := priv.Decrypt(c)
	if err != nil {
		return 0, err
	}
	return fromTwosComplement96(m)
}

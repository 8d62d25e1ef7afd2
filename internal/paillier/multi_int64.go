package paillier

import (
	"fmt"
	"io"
	"math/big"
)

// EncryptMultipleInt64s packs up to PackingLimit int64 values into a single
// Paillier plaintext, each occupying its own PackingBitSize-bit lane, and
// encrypts the packed plaintext in one operation. This lets the server
// homomorphically SUM several independent columns' encrypted rows with a
// single ciphertext multiplication per row.
func (pub *PublicKey) EncryptMultipleInt64s(reader io.Reader, values []int64) (*big.Int, error) {
	if len(values) == 0 || len(values) > PackingLimit {
		return nil, fmt.Errorf("paillier: EncryptMultipleInt64s: got %d values, want 1..%d", len(values), PackingLimit)
	}
	packed := new(big.Int)
	for i, v := range values {
		lane := toTwosComplement96(v)
		lane.Lsh(lane, uint(i*PackingBitSize))
		packed.Or(packed, lane)
	}
	return pub.Encrypt(reader, packed)
}

// DecryptMultipleInt64s reverses EncryptMultipleInt64s, unpacking count
// lanes. Each lane is checked independently for sign-consistency; a single
// overflowing lane fails the whole call with ErrOverflow.
func (priv *PrivateKey) DecryptMultipleInt64s(c *big.Int, count int) ([]int64, error) {
	if count <= 0 || count > PackingLimit {
		return nil, fmt.Errorf("paillier: DecryptMultipleInt64s: count %d out of range 1..%d", count, PackingLimit)
	}
	m, err := priv.Decrypt(c)
	if err != nil {
		return nil, err
	}

	laneMask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), PackingBitSize), big.NewInt(1))
	out := make([]int64, count)
	for i := 0; i < count; i++ {
		lane := new(big.Int).And(new(big.Int).Rsh(m, uint(i*PackingBitSize)), laneMask)
		v, err := fromTwosComplement96(lane)
		if err != nil {
			return nil, fmt.Errorf("paillier: DecryptMultipleInt64s: lane %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

package symcrypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPRFIsDeterministic(t *testing.T) {
	key := []byte("some-key-material")
	a := PRF(key, "00000001")
	b := PRF(key, "00000001")
	assert.True(t, bytes.Equal(a, b))

	c := PRF(key, "00000002")
	assert.False(t, bytes.Equal(a, c))
}

func TestPRGIsChunkInvariant(t *testing.T) {
	seed := []byte("paillier-key-seed")

	whole := NewPRG(seed).GetNextBytes(100)

	piecewise := NewPRG(seed)
	var got []byte
	for _, n := range []int{1, 19, 7, 53, 20} {
		got = append(got, piecewise.GetNextBytes(n)...)
	}

	assert.True(t, bytes.Equal(whole, got))
}

func TestPRGDifferentSeedsDiverge(t *testing.T) {
	a := NewPRG([]byte("seed-a")).GetNextBytes(32)
	b := NewPRG([]byte("seed-b")).GetNextBytes(32)
	assert.False(t, bytes.Equal(a, b))
}

func TestAesCbcRoundTripRandomIV(t *testing.T) {
	c := AesCbc{Key: make([]byte, 16)}
	plaintext := []byte("the quick brown fox jumps")

	ciphertext, err := c.Encrypt(nil, plaintext)
	require.NoError(t, err)
	assert.True(t, len(ciphertext) > len(plaintext))

	got, err := c.Decrypt(nil, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestAesCbcRoundTripFixedIV(t *testing.T) {
	c := AesCbc{Key: make([]byte, 32)}
	iv := make([]byte, 16)
	plaintext := []byte("exact block-----") // 16 bytes, still gets a full pad block

	ciphertext, err := c.Encrypt(iv, plaintext)
	require.NoError(t, err)

	got, err := c.Decrypt(iv, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestAesCbcFixedIVIsDeterministic(t *testing.T) {
	c := AesCbc{Key: make([]byte, 16)}
	iv := make([]byte, 16)
	plaintext := []byte("pseudonym cells must be stable")

	a, err := c.Encrypt(iv, plaintext)
	require.NoError(t, err)
	b, err := c.Encrypt(iv, plaintext)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(a, b))
}

func TestAesCbcRejectsCorruptPadding(t *testing.T) {
	c := AesCbc{Key: make([]byte, 16)}
	iv := make([]byte, 16)
	ciphertext, err := c.Encrypt(iv, []byte("hello"))
	require.NoError(t, err)

	corrupt := append([]byte{}, ciphertext...)
	corrupt[len(corrupt)-1] ^= 0xff

	_, err = c.Decrypt(iv, corrupt)
	assert.Error(t, err)
}

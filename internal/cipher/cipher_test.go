package cipher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanUnicodeStringSplitsAndLowercases(t *testing.T) {
	got := CleanUnicodeString("Hello, World! Foo-Bar")
	assert.Equal(t, []string{"hello", "world", "foo", "bar"}, got)
}

func TestPseudonymCipherIsDeterministic(t *testing.T) {
	c := NewPseudonymCipher(make([]byte, 16))

	a, err := c.Encrypt("alice@example.com")
	require.NoError(t, err)
	b, err := c.Encrypt("alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, a, b)

	got, err := c.Decrypt(a)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got)
}

func TestDerivedKeysProduceWorkingAesCiphers(t *testing.T) {
	masterKey := make([]byte, 16)

	pseudonym := NewPseudonymCipher(DerivePseudonymKey(masterKey, "email"))
	ct, err := pseudonym.Encrypt("alice@example.com")
	require.NoError(t, err)
	pt, err := pseudonym.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", pt)

	probabilistic := NewProbabilisticCipher(DeriveProbabilisticKey(masterKey, "notes"))
	ct, err = probabilistic.Encrypt("hello")
	require.NoError(t, err)
	pt, err = probabilistic.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "hello", pt)
}

func TestPseudonymCipherDistinctPlaintextsDiffer(t *testing.T) {
	c := NewPseudonymCipher(make([]byte, 16))
	a, err := c.Encrypt("alice")
	require.NoError(t, err)
	b, err := c.Encrypt("bob")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestProbabilisticCipherIsRandomized(t *testing.T) {
	c := NewProbabilisticCipher(make([]byte, 16))

	a, err := c.Encrypt("same plaintext")
	require.NoError(t, err)
	b, err := c.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	got, err := c.Decrypt(a)
	require.NoError(t, err)
	assert.Equal(t, "same plaintext", got)
}

func TestHomomorphicIntCipherRoundTrip(t *testing.T) {
	c, err := NewHomomorphicIntCipher([]byte("int-column-seed"))
	require.NoError(t, err)

	ct, err := c.Encrypt(14050)
	require.NoError(t, err)

	got, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, int64(14050), got)
	assert.NotEmpty(t, c.NSquareHex())
}

func TestHomomorphicFloatCipherRoundTrip(t *testing.T) {
	c, err := NewHomomorphicFloatCipher([]byte("float-column-seed"))
	require.NoError(t, err)

	ct, err := c.Encrypt(3.25)
	require.NoError(t, err)

	got, err := c.Decrypt(ct)
	require.NoError(t, err)
	assert.InDelta(t, 3.25, got, 1e-9)
}

func TestStringHashSubsequencesAreOrderIndependentUnderShuffle(t *testing.T) {
	h := NewStringHash([]byte("searchwords-key"))
	iv, err := RandomIV()
	require.NoError(t, err)

	a, err := h.GetHashesForWordSubsequencesWithIv("description", "the quick fox", iv, 5, nil)
	require.NoError(t, err)
	b, err := h.GetHashesForWordSubsequencesWithIv("description", "the quick fox", iv, 5, nil)
	require.NoError(t, err)

	assert.Equal(t, a, b, "same iv and input must hash identically")

	reverse := func(s []string) {
		for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
			s[i], s[j] = s[j], s[i]
		}
	}
	shuffled, err := h.GetHashesForWordSubsequencesWithIv("description", "the quick fox", iv, 5, reverse)
	require.NoError(t, err)
	assert.ElementsMatch(t, strings.Fields(a), strings.Fields(shuffled), "shuffling must only reorder the hashes")
}

func TestStringHashDifferentIVsDiverge(t *testing.T) {
	h := NewStringHash([]byte("searchwords-key"))
	ivA, err := RandomIV()
	require.NoError(t, err)
	ivB, err := RandomIV()
	require.NoError(t, err)

	a, err := h.GetHashesForWordSubsequencesWithIv("description", "hello world", ivA, 5, nil)
	require.NoError(t, err)
	b, err := h.GetHashesForWordSubsequencesWithIv("description", "hello world", ivB, 5, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDeriveKeysAreColumnSpecific(t *testing.T) {
	masterKey := []byte("0123456789abcdef")
	a := DerivePseudonymKey(masterKey, "ssn")
	b := DerivePseudonymKey(masterKey, "email")
	assert.NotEqual(t, a, b)
}

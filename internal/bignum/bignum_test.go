package bignum

import (
	"bytes"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGCD(t *testing.T) {
	cases := []struct {
		a, b, want int64
	}{
		{48, 18, 6},
		{17, 5, 1},
		{0, 7, 7},
	}
	for _, c := range cases {
		got := GCD(big.NewInt(c.a), big.NewInt(c.b))
		assert.Equal(t, c.want, got.Int64())
	}
}

func TestExtendedGCDSatisfiesBezout(t *testing.T) {
	a, b := big.NewInt(240), big.NewInt(46)
	g, x, y := ExtendedGCD(a, b)

	lhs := new(big.Int).Add(
		new(big.Int).Mul(a, x),
		new(big.Int).Mul(b, y),
	)
	assert.Equal(t, 0, lhs.Cmp(g))
}

func TestModInverseRoundTrips(t *testing.T) {
	m := big.NewInt(1000000007)
	a := big.NewInt(123456)

	inv, err := ModInverse(a, m)
	require.NoError(t, err)

	product := new(big.Int).Mod(new(big.Int).Mul(a, inv), m)
	assert.Equal(t, int64(1), product.Int64())
}

func TestModInverseRejectsNonCoprime(t *testing.T) {
	_, err := ModInverse(big.NewInt(4), big.NewInt(8))
	require.Error(t, err)
}

func TestRandRangeStaysInBounds(t *testing.T) {
	max := big.NewInt(1000)
	for i := 0; i < 200; i++ {
		v, err := RandRange(rand.Reader, max)
		require.NoError(t, err)
		assert.True(t, v.Sign() >= 0)
		assert.True(t, v.Cmp(max) < 0)
	}
}

func TestRandRangeRejectsNonPositiveBound(t *testing.T) {
	_, err := RandRange(rand.Reader, big.NewInt(0))
	require.Error(t, err)
}

func TestIsPrimeKnownValues(t *testing.T) {
	rounds := MillerRabinRounds(1e-9)
	cases := []struct {
		n    int64
		want bool
	}{
		{2, true},
		{3, true},
		{4, false},
		{17, true},
		{91, false}, // 7 * 13
		{97, true},
	}
	for _, c := range cases {
		got, err := IsPrime(rand.Reader, big.NewInt(c.n), rounds)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "n=%d", c.n)
	}
}

func TestGetPrimeReturnsPrimeOfRequestedLength(t *testing.T) {
	p, err := GetPrime(rand.Reader, 64)
	require.NoError(t, err)
	assert.Equal(t, 64, p.BitLen())

	prime, err := IsPrime(rand.Reader, p, MillerRabinRounds(1e-12))
	require.NoError(t, err)
	assert.True(t, prime)
}

func TestLongToBytesPadsToLimbBoundary(t *testing.T) {
	b := LongToBytes(big.NewInt(1), 0)
	assert.Equal(t, 4, len(b))
	assert.True(t, bytes.Equal(b, []byte{0, 0, 0, 1}))

	padded := LongToBytes(big.NewInt(1), 8)
	assert.Equal(t, 8, len(padded))
}

func TestBytesToLongRoundTrips(t *testing.T) {
	n := big.NewInt(0x0102030405)
	b := LongToBytes(n, 0)
	got := BytesToLong(b)
	assert.Equal(t, 0, got.Cmp(n))
}

// Package cipher implements the per-column cipher roles built on top of
// internal/symcrypto and internal/paillier: the deterministic (pseudonym)
// and randomized (probabilistic) string ciphers, the two homomorphic
// numeric ciphers, and the keyed searchwords hash used for CONTAINS
// queries over encrypted text.
package cipher

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"math/big"
	"strings"
	"unicode"

	"github.com/encql/encql/internal/paillier"
	"github.com/encql/encql/internal/symcrypto"
)

// Key derivation roles. Each cipher's key is PRF(masterKey, role+columnName)
// so two columns never share key material even under the same master key.
const (
	rolePseudonym          = "pseudonym_"
	roleProbabilistic      = "probabilistic_"
	roleHomomorphic        = "homomorphic_"
	roleSearchwordsHash    = "searchwords_hash_"
	roleSearchwordsPermKey = "searchwords_perm_"
)

// searchHashLen is how many bytes of the mixed sha1 digest survive into the
// wire hash token, matching the server's own left(bytes(sha1(...)), 8).
const searchHashLen = 8

func DerivePseudonymKey(masterKey []byte, column string) []byte {
	return symcrypto.PRF(masterKey, rolePseudonym+column)
}

func DeriveProbabilisticKey(masterKey []byte, column string) []byte {
	return symcrypto.PRF(masterKey, roleProbabilistic+column)
}

func DeriveHomomorphicSeed(masterKey []byte, column string) []byte {
	return symcrypto.PRF(masterKey, roleHomomorphic+column)
}

func DeriveSearchwordsHashKey(masterKey []byte, column string) []byte {
	return symcrypto.PRF(masterKey, roleSearchwordsHash+column)
}

// CleanUnicodeString lowercases s and splits it on runs of non-letter,
// non-digit characters, matching the normalization searchwords hashing
// applies before keying each word.
func CleanUnicodeString(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

// PseudonymCipher deterministically encrypts strings under a fixed
// (all-zero) IV so that equal plaintexts always produce equal ciphertexts,
// which is what lets the server perform equality joins/filters over the
// encrypted column.
type PseudonymCipher struct {
	aes symcrypto.AesCbc
}

func NewPseudonymCipher(key []byte) *PseudonymCipher {
	return &PseudonymCipher{aes: symcrypto.AesCbc{Key: key}}
}

func (c *PseudonymCipher) Encrypt(plaintext string) (string, error) {
	ct, err := c.aes.Encrypt(make([]byte, 16), []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("cipher: PseudonymCipher.Encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (c *PseudonymCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("cipher: PseudonymCipher.Decrypt: bad base64: %w", err)
	}
	pt, err := c.aes.Decrypt(make([]byte, 16), raw)
	if err != nil {
		return "", fmt.Errorf("cipher: PseudonymCipher.Decrypt: %w", err)
	}
	return string(pt), nil
}

// ProbabilisticCipher randomly re-IVs every call, so repeated encryptions
// of the same plaintext look unrelated on the wire.
type ProbabilisticCipher struct {
	aes symcrypto.AesCbc
}

func NewProbabilisticCipher(key []byte) *ProbabilisticCipher {
	return &ProbabilisticCipher{aes: symcrypto.AesCbc{Key: key}}
}

func (c *ProbabilisticCipher) Encrypt(plaintext string) (string, error) {
	ct, err := c.aes.Encrypt(nil, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("cipher: ProbabilisticCipher.Encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

func (c *ProbabilisticCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("cipher: ProbabilisticCipher.Decrypt: bad base64: %w", err)
	}
	pt, err := c.aes.Decrypt(nil, raw)
	if err != nil {
		return "", fmt.Errorf("cipher: ProbabilisticCipher.Decrypt: %w", err)
	}
	return string(pt), nil
}

// HomomorphicIntCipher wraps a Paillier keypair for an integer column.
type HomomorphicIntCipher struct {
	Key *paillier.PrivateKey
}

func NewHomomorphicIntCipher(seed []byte) (*HomomorphicIntCipher, error) {
	key, err := paillier.GenerateKey(symcrypto.NewPRG(seed))
	if err != nil {
		return nil, fmt.Errorf("cipher: NewHomomorphicIntCipher: %w", err)
	}
	return &HomomorphicIntCipher{Key: key}, nil
}

func (c *HomomorphicIntCipher) Encrypt(v int64) (string, error) {
	ct, err := c.Key.PublicKey.EncryptInt64(rand.Reader, v)
	if err != nil {
		return "", fmt.Errorf("cipher: HomomorphicIntCipher.Encrypt: %w", err)
	}
	return encodeCiphertext(ct), nil
}

func (c *HomomorphicIntCipher) Decrypt(ciphertext string) (int64, error) {
	ct, err := decodeCiphertext(ciphertext)
	if err != nil {
		return 0, fmt.Errorf("cipher: HomomorphicIntCipher.Decrypt: %w", err)
	}
	return c.Key.DecryptInt64(ct)
}

// NSquareHex renders n^2 as a 0x-prefixed hex literal, the form the server
// SQL template embeds the modulus in for PAILLIER_SUM.
func (c *HomomorphicIntCipher) NSquareHex() string {
	return "0x" + c.Key.NSquare.Text(16)
}

// HomomorphicFloatCipher wraps a Paillier keypair for a float column.
type HomomorphicFloatCipher struct {
	Key *paillier.PrivateKey
}

func NewHomomorphicFloatCipher(seed []byte) (*HomomorphicFloatCipher, error) {
	key, err := paillier.GenerateKey(symcrypto.NewPRG(seed))
	if err != nil {
		return nil, fmt.Errorf("cipher: NewHomomorphicFloatCipher: %w", err)
	}
	return &HomomorphicFloatCipher{Key: key}, nil
}

func (c *HomomorphicFloatCipher) Encrypt(v float64) (string, error) {
	ct, err := c.Key.PublicKey.EncryptFloat(rand.Reader, v)
	if err != nil {
		return "", fmt.Errorf("cipher: HomomorphicFloatCipher.Encrypt: %w", err)
	}
	return encodeCiphertext(ct), nil
}

func (c *HomomorphicFloatCipher) Decrypt(ciphertext string) (float64, error) {
	ct, err := decodeCiphertext(ciphertext)
	if err != nil {
		return 0, fmt.Errorf("cipher: HomomorphicFloatCipher.Decrypt: %w", err)
	}
	return c.Key.DecryptFloat(ct)
}

func (c *HomomorphicFloatCipher) NSquareHex() string {
	return "0x" + c.Key.NSquare.Text(16)
}

func encodeCiphertext(c *big.Int) string {
	return base64.StdEncoding.EncodeToString(c.Bytes())
}

func decodeCiphertext(s string) (*big.Int, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad base64: %w", err)
	}
	return new(big.Int).SetBytes(raw), nil
}

// StringHash produces the keyed word-subsequence hashes that back
// searchwords CONTAINS queries: every contiguous subsequence of the
// cleaned word list, up to a configured number of words long, gets its own
// keyed hash so the server can match on any contiguous phrase without ever
// seeing plaintext.
type StringHash struct {
	key []byte
}

func NewStringHash(key []byte) *StringHash {
	return &StringHash{key: key}
}

// GetStringKeyHash returns the keyed hash of a single cleaned phrase,
// scoped to fieldName so the same phrase hashes differently across columns
// even under a shared key.
func (h *StringHash) GetStringKeyHash(fieldName, phrase string) []byte {
	input := fmt.Sprintf("%08d%s%s", len(fieldName), fieldName, phrase)
	return symcrypto.PRF(h.key, input)
}

// MixHash reproduces the server-side sha1(concat(left(col, 24), keyedHashB64))
// construction: both operands are base64 text, concatenated as strings
// before hashing, then truncated to searchHashLen bytes and base64 encoded
// again. ivB64 is the cell's own IV prefix (or, when rewriting a WHERE
// CONTAINS, the literal column reference placeholder is evaluated
// server-side per row instead of here).
func MixHash(ivB64 string, keyedHash []byte) string {
	keyedB64 := base64.StdEncoding.EncodeToString(keyedHash)
	mixer := sha1.New()
	mixer.Write([]byte(ivB64 + keyedB64))
	sum := mixer.Sum(nil)
	return base64.StdEncoding.EncodeToString(sum[:searchHashLen])
}

// GetHashesForWordSubsequencesWithIv hashes every contiguous word
// subsequence of s, up to maxSeqLen words long, through MixHash against the
// caller-supplied iv (see RandomIV), optionally shuffles the result with shuffle (nil to
// leave the natural order, which would otherwise leak sequence position),
// and joins everything with the iv as a base64 prefix: the wire format is
// "<b64(iv)> <hash1> <hash2> ...".
func (h *StringHash) GetHashesForWordSubsequencesWithIv(fieldName, s string, iv []byte, maxSeqLen int, shuffle func([]string)) (string, error) {
	words := CleanUnicodeString(s)
	ivB64 := base64.StdEncoding.EncodeToString(iv)
	var hashes []string
	for length := 1; length <= maxSeqLen; length++ {
		for start := 0; start+length <= len(words); start++ {
			phrase := strings.Join(words[start:start+length], " ")
			keyed := h.GetStringKeyHash(fieldName, phrase)
			hashes = append(hashes, MixHash(ivB64, keyed))
		}
	}
	if shuffle != nil {
		shuffle(hashes)
	}
	parts := append([]string{ivB64}, hashes...)
	return strings.Join(parts, " "), nil
}

// RandomIV returns a fresh 16-byte IV for GetHashesForWordSubsequencesWithIv.
func RandomIV() ([]byte, error) {
	iv := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("cipher: RandomIV: %w", err)
	}
	return iv, nil
}

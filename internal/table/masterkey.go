// Package table implements table identity and the wire formats tying a
// table to its master key and extended schema: the master key file, the
// table description codec, and version/hash compatibility checks that run
// on every load/query/show operation.
package table

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/encql/encql/internal/errs"
	"github.com/encql/encql/internal/symcrypto"
)

// MasterKeySize is the width of a master key in raw bytes.
const MasterKeySize = 16

// MasterKey is the root secret a table's per-column keys are all derived
// from via symcrypto.PRF.
type MasterKey [MasterKeySize]byte

// Zero overwrites the key material in place so it does not linger in
// memory longer than needed.
func (k *MasterKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

// Hash returns the base64-encoded SHA-1 hash of the key, the form stored in
// a table's description and compared against on every subsequent
// operation against that table.
func (k MasterKey) Hash() string {
	sum := sha1.Sum(k[:])
	return base64.StdEncoding.EncodeToString(sum[:])
}

// GenerateMasterKey returns a fresh random master key.
func GenerateMasterKey() (MasterKey, error) {
	var k MasterKey
	raw, err := symcrypto.GetRandBytes(MasterKeySize)
	if err != nil {
		return k, fmt.Errorf("table: GenerateMasterKey: %w", err)
	}
	copy(k[:], raw)
	return k, nil
}

// WriteMasterKeyFile creates a new key file at path containing the
// base64-encoded key. It refuses to overwrite an existing file: key files
// are created once, by "mk", and never silently replaced.
func WriteMasterKeyFile(path string, key MasterKey) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("table: WriteMasterKeyFile: %w", errs.IOError{Err: err})
	}
	defer f.Close()

	encoded := base64.StdEncoding.EncodeToString(key[:])
	if _, err := f.WriteString(encoded); err != nil {
		return fmt.Errorf("table: WriteMasterKeyFile: %w", errs.IOError{Err: err})
	}
	return nil
}

// ReadMasterKeyFile loads a key file written by WriteMasterKeyFile.
func ReadMasterKeyFile(path string) (MasterKey, error) {
	var key MasterKey
	raw, err := os.ReadFile(path)
	if err != nil {
		return key, fmt.Errorf("table: ReadMasterKeyFile: %w", errs.IOError{Err: err})
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return key, fmt.Errorf("table: ReadMasterKeyFile: %w", errs.FormatError{Reason: "key file is not valid base64"})
	}
	if len(decoded) != MasterKeySize {
		return key, fmt.Errorf("table: ReadMasterKeyFile: %w", errs.FormatError{Reason: fmt.Sprintf("key must decode to %d bytes, got %d", MasterKeySize, len(decoded))})
	}
	copy(key[:], decoded)
	return key, nil
}

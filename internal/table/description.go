package table

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/encql/encql/internal/errs"
	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/symcrypto"
)

// Version is the table description format version this client writes and
// expects to read. Bumping it intentionally breaks compatibility between
// old clients and newly created tables.
const Version = "1.0"

const generatedMarker = "encql generated info, do not remove!"

// Description is the parsed form of a table's stored description string.
type Description struct {
	UserText      string
	MasterKeyHash string
	Version       string
	Schema        schema.Schema
}

// schemaKey derives the key the description's embedded schema blob is
// encrypted under: the PRF of the master key over the fixed label
// "schema_blob", so the blob can only be read with the table's master key.
func schemaKey(masterKey MasterKey) []byte {
	return symcrypto.PRF(masterKey[:], "schema_blob")
}

// Encode renders a table description string: user-supplied free text, an
// identifying marker, the master key's hash, the format version, and the
// schema compressed, encrypted, and base64-encoded.
func Encode(userText string, masterKey MasterKey, s schema.Schema) (string, error) {
	blob, err := encodeSchemaBlob(masterKey, s)
	if err != nil {
		return "", err
	}
	parts := []string{
		userText,
		generatedMarker,
		"Hash of master key: " + masterKey.Hash(),
		"Version: " + Version,
		"Schema: " + blob,
	}
	return strings.Join(parts, "||"), nil
}

// Parse reverses Encode and additionally checks the embedded master key
// hash and version against expectedKey, returning KeyMismatchError or
// VersionError as appropriate before the caller ever looks at the schema.
func Parse(desc string, expectedKey MasterKey) (*Description, error) {
	parts := rSplitN(desc, "||", 5)
	if len(parts) != 5 {
		return nil, fmt.Errorf("table: Parse: %w", errs.FormatError{Reason: "table description is missing expected sections"})
	}
	userText, marker, hashPart, versionPart, schemaPart := parts[0], parts[1], parts[2], parts[3], parts[4]
	if marker != generatedMarker {
		return nil, fmt.Errorf("table: Parse: %w", errs.FormatError{Reason: "table was not created by this client"})
	}

	gotHash := strings.TrimPrefix(hashPart, "Hash of master key: ")
	if gotHash != expectedKey.Hash() {
		return nil, errs.KeyMismatchError{}
	}

	gotVersion := strings.TrimPrefix(versionPart, "Version: ")
	if gotVersion != Version {
		return nil, errs.VersionError{Got: gotVersion, Want: Version}
	}

	schemaBlob := strings.TrimPrefix(schemaPart, "Schema: ")
	s, err := decodeSchemaBlob(expectedKey, schemaBlob)
	if err != nil {
		return nil, err
	}

	return &Description{UserText: userText, MasterKeyHash: gotHash, Version: gotVersion, Schema: s}, nil
}

func encodeSchemaBlob(masterKey MasterKey, s schema.Schema) (string, error) {
	raw, err := schemaToJSON(s)
	if err != nil {
		return "", fmt.Errorf("table: encodeSchemaBlob: %w", err)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("table: encodeSchemaBlob: compressing: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("table: encodeSchemaBlob: compressing: %w", err)
	}

	aes := symcrypto.AesCbc{Key: schemaKey(masterKey)}
	ciphertext, err := aes.Encrypt(nil, compressed.Bytes())
	if err != nil {
		return "", fmt.Errorf("table: encodeSchemaBlob: encrypting: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func decodeSchemaBlob(masterKey MasterKey, blob string) (schema.Schema, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("table: decodeSchemaBlob: %w", errs.FormatError{Reason: "schema blob is not valid base64"})
	}

	aes := symcrypto.AesCbc{Key: schemaKey(masterKey)}
	compressed, err := aes.Decrypt(nil, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("table: decodeSchemaBlob: %w", errs.DecryptError{Column: "<schema>", Err: err})
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("table: decodeSchemaBlob: %w", errs.FormatError{Reason: "schema blob is not valid compressed data"})
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("table: decodeSchemaBlob: %w", errs.FormatError{Reason: "schema blob is truncated"})
	}

	return schemaFromJSON(raw)
}

// rSplitN splits s on sep starting from the right, stopping after at most
// n pieces, so the first piece can itself safely contain sep. This mirrors
// str.rsplit(sep, n-1) and is what makes a free-text user description
// containing "||" not corrupt the fields that follow it.
func rSplitN(s, sep string, n int) []string {
	if n <= 1 {
		return []string{s}
	}
	var parts []string
	rest := s
	for i := 0; i < n-1; i++ {
		idx := strings.LastIndex(rest, sep)
		if idx < 0 {
			break
		}
		parts = append([]string{rest[idx+len(sep):]}, parts...)
		rest = rest[:idx]
	}
	return append([]string{rest}, parts...)
}

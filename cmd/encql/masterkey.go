package main

import (
	"crypto/sha256"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/term"

	"github.com/encql/encql/internal/table"
)

const passphraseKDFIterations = 100_000

// resolveMasterKey returns tableName's master key: derived from an
// interactively entered passphrase when usePassphrase is set, otherwise
// read from keyFile. Passphrase mode needs no key file at all, trading a
// remembered secret for the convenience of a file that can be lost.
func resolveMasterKey(keyFile string, usePassphrase bool, tableName string) (table.MasterKey, error) {
	if !usePassphrase {
		return table.ReadMasterKeyFile(keyFile)
	}

	fmt.Fprint(os.Stderr, "passphrase: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return table.MasterKey{}, fmt.Errorf("reading passphrase: %w", err)
	}
	return deriveMasterKey(raw, tableName), nil
}

// deriveMasterKey stretches a passphrase into a master key via
// PBKDF2-HMAC-SHA256, salted with the table name so one passphrase
// yields independent, unrelated keys across different tables.
func deriveMasterKey(passphrase []byte, tableName string) table.MasterKey {
	derived := pbkdf2.Key(passphrase, []byte("encql_master_key:"+tableName), passphraseKDFIterations, table.MasterKeySize, sha256.New)
	var key table.MasterKey
	copy(key[:], derived)
	return key
}

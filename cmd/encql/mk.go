package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/encql/encql/internal/table"
)

type mkFlags struct {
	global      *globalFlags
	schemaFile  string
	description string
}

func mkCmd(global *globalFlags) *cobra.Command {
	flags := &mkFlags{global: global}
	cmd := &cobra.Command{
		Use:   "mk <table>",
		Short: "Create a new encrypted table",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runMk(args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.schemaFile, "schema", "", "Path to the extended schema file (JSON or TOML) (required)")
	cmd.Flags().StringVar(&flags.description, "description", "", "Free-text description stored alongside the table")
	return cmd
}

func runMk(tableName string, flags *mkFlags) error {
	if flags.schemaFile == "" {
		return fmt.Errorf("--schema is required")
	}

	keyFile, dsn, err := resolvedConfig(flags.global)
	if err != nil {
		return err
	}

	s, err := readSchemaFile(flags.schemaFile)
	if err != nil {
		return err
	}

	masterKey, err := newMasterKey(keyFile, flags.global.passphrase, tableName)
	if err != nil {
		return err
	}

	desc, err := table.Encode(flags.description, masterKey, s)
	if err != nil {
		return fmt.Errorf("encoding table description: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc, err := openService(ctx, dsn)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.CreateTable(ctx, tableName, transportColumns(s), desc); err != nil {
		return fmt.Errorf("creating table: %w", err)
	}

	fmt.Printf("created table %q\n", tableName)
	return nil
}

// newMasterKey returns the master key a freshly created table should use.
// In passphrase mode nothing is written to disk: the key rederives itself
// from the same passphrase and table name on every later operation.
// Otherwise it reads keyFile if it already exists, or generates and writes
// a fresh random key if it doesn't.
func newMasterKey(keyFile string, usePassphrase bool, tableName string) (table.MasterKey, error) {
	if usePassphrase {
		return resolveMasterKey(keyFile, true, tableName)
	}

	if _, err := os.Stat(keyFile); err == nil {
		return table.ReadMasterKeyFile(keyFile)
	}

	key, err := table.GenerateMasterKey()
	if err != nil {
		return table.MasterKey{}, err
	}
	if err := table.WriteMasterKeyFile(keyFile, key); err != nil {
		return table.MasterKey{}, err
	}
	fmt.Printf("generated new master key at %s\n", keyFile)
	return key, nil
}

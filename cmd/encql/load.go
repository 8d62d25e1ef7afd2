package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/encql/encql/internal/errs"
	"github.com/encql/encql/internal/load"
	"github.com/encql/encql/internal/rewrite"
	"github.com/encql/encql/internal/schema"
	"github.com/encql/encql/internal/table"
)

type loadFlags struct {
	global     *globalFlags
	schemaFile string
	format     string
}

func loadCmd(global *globalFlags) *cobra.Command {
	flags := &loadFlags{global: global}
	cmd := &cobra.Command{
		Use:   "load <table> <datafile>",
		Short: "Encrypt and insert rows from a CSV or NDJSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runLoad(args[0], args[1], flags)
		},
	}
	cmd.Flags().StringVar(&flags.schemaFile, "schema", "", "Path to the extended schema file used when the table was created (required)")
	cmd.Flags().StringVar(&flags.format, "format", "", `Input format, "csv" or "ndjson" (default: guessed from file extension)`)
	return cmd
}

func runLoad(tableName, dataFile string, flags *loadFlags) error {
	if flags.schemaFile == "" {
		return fmt.Errorf("--schema is required")
	}

	keyFile, dsn, err := resolvedConfig(flags.global)
	if err != nil {
		return err
	}
	masterKey, err := resolveMasterKey(keyFile, flags.global.passphrase, tableName)
	if err != nil {
		return err
	}

	localSchema, err := readSchemaFile(flags.schemaFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc, err := openService(ctx, dsn)
	if err != nil {
		return err
	}
	defer svc.Close()

	desc, creationTimeMs, err := svc.GetTableDescription(ctx, tableName)
	if err != nil {
		return fmt.Errorf("reading table description: %w", err)
	}
	parsed, err := table.Parse(desc, masterKey)
	if err != nil {
		return err
	}
	if err := schemasMatch(localSchema, parsed.Schema); err != nil {
		return err
	}
	tableID := table.ID(tableName, creationTimeMs)

	f, err := os.Open(dataFile)
	if err != nil {
		return fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()

	rows, err := readDataFile(f, dataFile, flags.format)
	if err != nil {
		return err
	}

	rewriteCtx := &rewrite.Context{Schema: localSchema, MasterKey: masterKey[:], TableID: tableID}
	loader := load.NewLoader(rewriteCtx)

	encoded := make([]map[string]any, 0, len(rows))
	for i, row := range rows {
		enc, err := loader.EncodeRow(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		encoded = append(encoded, enc)
	}

	if err := svc.InsertRows(ctx, tableName, encoded); err != nil {
		return fmt.Errorf("inserting rows: %w", err)
	}

	fmt.Printf("loaded %d rows into %q\n", len(encoded), tableName)
	return nil
}

func schemasMatch(local, stored schema.Schema) error {
	localJSON, err := json.Marshal(local)
	if err != nil {
		return fmt.Errorf("marshaling local schema: %w", err)
	}
	storedJSON, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshaling stored schema: %w", err)
	}
	if string(localJSON) != string(storedJSON) {
		return errs.SchemaError{Reason: "local schema file does not match the table's stored schema"}
	}
	return nil
}

func readDataFile(f *os.File, path, format string) ([]map[string]any, error) {
	switch resolveFormat(path, format) {
	case "ndjson":
		return load.ReadNDJSON(f)
	default:
		return load.ReadCSV(f)
	}
}

func resolveFormat(path, format string) string {
	if format != "" {
		return format
	}
	if strings.HasSuffix(strings.ToLower(path), ".ndjson") || strings.HasSuffix(strings.ToLower(path), ".jsonl") {
		return "ndjson"
	}
	return "csv"
}

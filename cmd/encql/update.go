package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/encql/encql/internal/table"
)

type updateFlags struct {
	global      *globalFlags
	schemaFile  string
	description string
}

func updateCmd(global *globalFlags) *cobra.Command {
	flags := &updateFlags{global: global}
	cmd := &cobra.Command{
		Use:   "update <table>",
		Short: "Widen a table's schema and/or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runUpdate(args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.schemaFile, "schema", "", "Path to the new, widened extended schema file (required)")
	cmd.Flags().StringVar(&flags.description, "description", "", "New free-text description stored alongside the table")
	return cmd
}

func runUpdate(tableName string, flags *updateFlags) error {
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

	s, err := readSchemaFile(flags.schemaFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	svc, err := openService(ctx, dsn)
	if err != nil {
		return err
	}
	defer svc.Close()

	oldDesc, _, err := svc.GetTableDescription(ctx, tableName)
	if err != nil {
		return fmt.Errorf("reading table description: %w", err)
	}
	old, err := table.Parse(oldDesc, masterKey)
	if err != nil {
		return err
	}

	userText := flags.description
	if userText == "" {
		userText = old.UserText
	}

	desc, err := table.Encode(userText, masterKey, s)
	if err != nil {
		return fmt.Errorf("encoding table description: %w", err)
	}

	if err := svc.SetTableDescription(ctx, tableName, transportColumns(s), desc); err != nil {
		return fmt.Errorf("updating table: %w", err)
	}

	fmt.Printf("updated table %q\n", tableName)
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/encql/encql/internal/schema/tomlschema"
	"github.com/encql/encql/internal/table"
)

type showFlags struct {
	global *globalFlags
}

func showCmd(global *globalFlags) *cobra.Command {
	flags := &showFlags{global: global}
	cmd := &cobra.Command{
		Use:   "show <table>",
		Short: "Print a table's description and extended schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runShow(args[0], flags)
		},
	}
	return cmd
}

func runShow(tableName string, flags *showFlags) error {
	keyFile, dsn, err := resolvedConfig(flags.global)
	if err != nil {
		return err
	}
	masterKey, err := resolveMasterKey(keyFile, flags.global.passphrase, tableName)
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

	desc, creationTimeMs, err := svc.GetTableDescription(ctx, tableName)
	if err != nil {
		return fmt.Errorf("reading table description: %w", err)
	}
	parsed, err := table.Parse(desc, masterKey)
	if err != nil {
		return err
	}

	fmt.Printf("table:        %s\n", tableName)
	fmt.Printf("table id:     %s\n", table.ID(tableName, creationTimeMs))
	fmt.Printf("description:  %s\n", parsed.UserText)
	fmt.Println("schema:")
	return tomlschema.Write(os.Stdout, parsed.Schema)
}

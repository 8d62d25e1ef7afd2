package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/encql/encql/internal/manifest"
	"github.com/encql/encql/internal/reassemble"
	"github.com/encql/encql/internal/rewrite"
	"github.com/encql/encql/internal/sqlparser"
	"github.com/encql/encql/internal/table"
)

type queryFlags struct {
	global *globalFlags
	format string
}

func queryCmd(global *globalFlags) *cobra.Command {
	flags := &queryFlags{global: global}
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Rewrite and run a SELECT statement against an encrypted table",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runQuery(args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.format, "format", "", `Output format, "table" or "json" (default: from config, else "table")`)
	return cmd
}

func runQuery(sqlText string, flags *queryFlags) error {
	keyFile, dsn, err := resolvedConfig(flags.global)
	if err != nil {
		return err
	}
	q, err := sqlparser.Parse(sqlText)
	if err != nil {
		return fmt.Errorf("parsing query: %w", err)
	}

	masterKey, err := resolveMasterKey(keyFile, flags.global.passphrase, q.From)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	svc, err := openService(ctx, dsn)
	if err != nil {
		return err
	}
	defer svc.Close()

	desc, creationTimeMs, err := svc.GetTableDescription(ctx, q.From)
	if err != nil {
		return fmt.Errorf("reading table description: %w", err)
	}
	parsed, err := table.Parse(desc, masterKey)
	if err != nil {
		return err
	}

	rewriteCtx := &rewrite.Context{
		Schema:    parsed.Schema,
		MasterKey: masterKey[:],
		TableID:   table.ID(q.From, creationTimeMs),
		Manifest:  manifest.New(uuid.NewString()),
	}

	plan, err := rewrite.Rewrite(q, rewriteCtx)
	if err != nil {
		return fmt.Errorf("rewriting query: %w", err)
	}

	rawRows, err := svc.Query(ctx, plan.SQL)
	if err != nil {
		return fmt.Errorf("running rewritten query: %w", err)
	}

	reassembled := make([]reassemble.Row, len(rawRows))
	for i, r := range rawRows {
		reassembled[i] = reassemble.Row(r)
	}

	results, err := reassemble.New(rewriteCtx, plan).DecodeAll(reassembled)
	if err != nil {
		return fmt.Errorf("decoding results: %w", err)
	}

	cfg, _, err := loadConfig(flags.global)
	if err != nil {
		return err
	}
	return writeResults(os.Stdout, results, cfg.Format(flags.format))
}

func writeResults(w *os.File, rows []map[string]any, format string) error {
	if strings.EqualFold(format, "json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	return writeTable(w, rows)
}

func writeTable(w *os.File, rows []map[string]any) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	cols := orderedKeys(rows[0])
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, row := range rows {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = fmt.Sprintf("%v", row[c])
		}
		fmt.Fprintln(tw, strings.Join(vals, "\t"))
	}
	return tw.Flush()
}

func orderedKeys(row map[string]any) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

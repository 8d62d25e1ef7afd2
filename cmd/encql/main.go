// Package main contains the encql CLI: load, query, mk, update, show,
// and version, wired the way the teacher cobra CLI wires its own
// subcommands (one xxxCmd() constructor, a xxxFlags struct, RunE
// closures delegating to runXxx functions).
package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/encql/encql/internal/config"
	"github.com/encql/encql/internal/transport"
	"github.com/encql/encql/internal/transport/mysqladapter"
)

// version is the encql CLI release string.
const version = "0.1.0"

type globalFlags struct {
	masterKeyFile string
	dsn           string
	configFile    string
	passphrase    bool
}

func main() {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "encql",
		Short: "Query and load encrypted columns on a remote columnar table service",
	}
	rootCmd.PersistentFlags().StringVar(&flags.masterKeyFile, "master_key_filename", "", "Path to the table's master key file")
	rootCmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "Table service connection string")
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to encql's YAML config file (default ~/.encql.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flags.passphrase, "passphrase", false, "Derive the master key from an interactively entered passphrase instead of --master_key_filename")

	rootCmd.AddCommand(mkCmd(flags))
	rootCmd.AddCommand(loadCmd(flags))
	rootCmd.AddCommand(queryCmd(flags))
	rootCmd.AddCommand(updateCmd(flags))
	rootCmd.AddCommand(showCmd(flags))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the encql version",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

// resolvedConfig loads flags.configFile (or its default path) and
// resolves the master key file and DSN against it, flags taking priority.
func resolvedConfig(flags *globalFlags) (keyFile, dsn string, err error) {
	cfg, path, err := loadConfig(flags)
	if err != nil {
		return "", "", err
	}
	keyFile = cfg.MasterKeyFile(flags.masterKeyFile)
	dsn = cfg.DSN(flags.dsn)
	if keyFile == "" && !flags.passphrase {
		return "", "", fmt.Errorf("--master_key_filename or --passphrase is required (or set default_master_key_file in %s)", path)
	}
	if dsn == "" {
		return "", "", fmt.Errorf("--dsn is required (or set default_dsn in %s)", path)
	}
	return keyFile, dsn, nil
}

// loadConfig loads flags.configFile, or its default path if unset.
func loadConfig(flags *globalFlags) (cfg *config.Config, path string, err error) {
	path = flags.configFile
	if path == "" {
		path, err = config.DefaultPath()
		if err != nil {
			return nil, "", err
		}
	}
	cfg, err = config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// openService connects to the table service named by dsn. mysqladapter is
// the only transport.TableService this CLI ships, matching the DSN shape
// its --dsn flag already documents.
func openService(ctx context.Context, dsn string) (transport.TableService, error) {
	return mysqladapter.Open(ctx, dsn)
}

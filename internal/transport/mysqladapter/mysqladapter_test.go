package mysqladapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/encql/encql/internal/transport"
)

func setupMySQL(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")
	return dsn
}

func TestAdapterCreateInsertAndQueryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	dsn := setupMySQL(t)

	adapter, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer adapter.Close()

	columns := []transport.Column{
		{Name: "DS_PSEUDONYM_make", Type: transport.ColumnString, Required: true},
		{Name: "year", Type: transport.ColumnInteger},
	}
	require.NoError(t, adapter.CreateTable(ctx, "cars", columns, "desc-v1"))

	got, creationTimeMs, err := adapter.GetTableDescription(ctx, "cars")
	require.NoError(t, err)
	require.Equal(t, "desc-v1", got)
	require.Positive(t, creationTimeMs)

	require.NoError(t, adapter.InsertRows(ctx, "cars", []map[string]any{
		{"DS_PSEUDONYM_make": "ciphertext-ford", "year": int64(2020)},
		{"DS_PSEUDONYM_make": "ciphertext-chevy", "year": int64(2021)},
	}))

	rows, err := adapter.Query(ctx, "SELECT year FROM cars WHERE DS_PSEUDONYM_make = 'ciphertext-ford'")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.EqualValues(t, 2020, rows[0]["year"])

	require.NoError(t, adapter.SetTableDescription(ctx, "cars", append(columns,
		transport.Column{Name: "color", Type: transport.ColumnString}), "desc-v2"))
	got, _, err = adapter.GetTableDescription(ctx, "cars")
	require.NoError(t, err)
	require.Equal(t, "desc-v2", got)

	rows, err = adapter.Query(ctx, "SELECT color FROM cars WHERE DS_PSEUDONYM_make = 'ciphertext-ford'")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0]["color"])
}

func TestAdapterCreateTableRejectsDuplicate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	adapter, err := Open(ctx, setupMySQL(t))
	require.NoError(t, err)
	defer adapter.Close()

	columns := []transport.Column{{Name: "id", Type: transport.ColumnInteger, Required: true}}
	require.NoError(t, adapter.CreateTable(ctx, "dup", columns, "desc"))
	err = adapter.CreateTable(ctx, "dup", columns, "desc")
	require.Error(t, err)
}

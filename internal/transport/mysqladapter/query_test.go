package mysqladapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/encql/encql/internal/transport"
)

func TestTranslateRewritesContainsToMySQLEquivalent(t *testing.T) {
	sql := "SELECT * FROM t WHERE (DS_SEARCHWORDS_Description contains to_base64(left(bytes(sha1(concat(left(DS_SEARCHWORDS_Description, 24), 'abc=='))), 8)))"
	translated, post := translate(sql)

	assert.Contains(t, translated, "INSTR(DS_SEARCHWORDS_Description, TO_BASE64(LEFT(UNHEX(SHA1(CONCAT(LEFT(DS_SEARCHWORDS_Description, 24), 'abc=='))), 8))) > 0")
	assert.Empty(t, post)
}

func TestTranslateRewritesPaillierSumAndFoldsCiphertexts(t *testing.T) {
	sql := "SELECT TO_BASE64(BYTES(PAILLIER_SUM(FROM_BASE64(DS_HOMOMORPHIC_INT_amount), '0x10'))) AS agg0_0_ FROM t"
	translated, post := translate(sql)

	assert.Contains(t, translated, "GROUP_CONCAT(DS_HOMOMORPHIC_INT_amount SEPARATOR 0x01) AS agg0_0_")
	require.Len(t, post, 1)

	// Folding the single ciphertext 1 into the starting product 1 with
	// n^2 = 0x10 (16) gives 1*1 mod 16 = 1.
	row := transport.Row{"agg0_0_": "AQ=="} // base64("\x01")
	require.NoError(t, post.apply(row))
	assert.Equal(t, "AQ==", row["agg0_0_"])
}

func TestTranslateRewritesTopIntoFrequencyFold(t *testing.T) {
	sql := "SELECT TOP(DS_PSEUDONYM_Make) AS agg0_0_ FROM t"
	translated, post := translate(sql)

	assert.Contains(t, translated, "GROUP_CONCAT(DS_PSEUDONYM_Make SEPARATOR 0x01) AS agg0_0_")
	require.Len(t, post, 1)

	row := transport.Row{"agg0_0_": "ford\x01ford\x01chevy"}
	require.NoError(t, post.apply(row))
	assert.Equal(t, "ford", row["agg0_0_"])
}

func TestSQLColumnNameReplacesDots(t *testing.T) {
	assert.Equal(t, "job_dot_title", sqlColumnName("job.title"))
	assert.Equal(t, "DS_PSEUDONYM_email", sqlColumnName("DS_PSEUDONYM_email"))
}

package mosaic

import (
	"math"
	"testing"
	"time"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"
)

func TestLoadObjects(t *testing.T) {
	rows := []Row{
		{"name": "a", "n": 1, "ok": true},
		{"name": "b's", "score": 0.5},
	}

	stmts, err := LoadObjects("points", rows, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	snaps.MatchSnapshot(t, stmts[0])

	stmts, err = LoadObjects("points", rows, LoadOptions{Columns: []string{"n", "name"}})
	require.NoError(t, err)
	require.Equal(t, []string{
		`CREATE TABLE IF NOT EXISTS "points" AS SELECT 1 AS "n", 'a' AS "name" UNION ALL SELECT NULL AS "n", 'b''s' AS "name"`,
	}, stmts)

	stmts, err = LoadObjects("points", rows, LoadOptions{Replace: true, Temp: true, View: true, Columns: []string{"name"}})
	require.NoError(t, err)
	require.Equal(t, []string{
		`DROP VIEW IF EXISTS "points"`,
		`CREATE TEMP VIEW "points" AS SELECT 'a' AS "name" UNION ALL SELECT 'b''s' AS "name"`,
	}, stmts)
}

func TestLoadObjectsErrors(t *testing.T) {
	_, err := LoadObjects("", []Row{{"a": 1}}, LoadOptions{})
	require.Error(t, err)
	_, err = LoadObjects("t", nil, LoadOptions{})
	require.Error(t, err)
	_, err = LoadObjects("t", []Row{{}}, LoadOptions{})
	require.Error(t, err)
	_, err = LoadObjects("t", []Row{{"a": struct{}{}}}, LoadOptions{})
	require.ErrorContains(t, err, "row 0 column a")
}

func TestQuoteIdent(t *testing.T) {
	require.Equal(t, `"plain"`, quoteIdent("plain"))
	require.Equal(t, `"say ""hi"""`, quoteIdent(`say "hi"`))
}

func TestQuoteLiteral(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for want, v := range map[string]any{
		"NULL":                   nil,
		"TRUE":                   true,
		"42":                     int64(42),
		"3.0":                    3.0,
		"0.25":                   float32(0.25),
		"'it''s'":                "it's",
		"X'cafe'":                []byte{0xca, 0xfe},
		"'2024-05-01T12:00:00Z'": ts,
	} {
		got, err := quoteLiteral(v)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	got, err := quoteLiteral(math.NaN())
	require.NoError(t, err)
	require.Equal(t, "NULL", got)
}

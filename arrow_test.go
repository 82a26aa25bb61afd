package mosaic_test

import (
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/require"

	mosaic "github.com/scopedb/mosaic-go"
)

func TestDecodeTableRoundTrip(t *testing.T) {
	want := makeTable(t)

	got, err := mosaic.DecodeTable(encodeTable(t, want))
	require.NoError(t, err)
	defer got.Release()

	require.True(t, want.Schema().Equal(got.Schema()))
	require.EqualValues(t, 3, got.NumRows())
	require.Equal(t, 3, got.NumCols())
	require.Equal(t, []string{"id", "name", "score"}, got.ColumnNames())
	require.Equal(t, []mosaic.Row{
		{"id": int64(1), "name": "a", "score": nil},
		{"id": int64(2), "name": nil, "score": 2.5},
		{"id": nil, "name": "c", "score": 3.75},
	}, got.ToRows())

	col, ok := got.Column("score")
	require.True(t, ok)
	require.Equal(t, 3, col.Len())
	_, ok = got.Column("missing")
	require.False(t, ok)
}

func TestDecodeTableMultipleBatches(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int32}}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	b.Field(0).(*array.Int32Builder).AppendValues([]int32{1, 2}, nil)
	first := b.NewRecord()
	b.Field(0).(*array.Int32Builder).AppendValues([]int32{3, 4, 5}, nil)
	second := b.NewRecord()
	table := mosaic.NewTable(schema, first, second)
	defer table.Release()

	got, err := mosaic.DecodeTable(encodeTable(t, table))
	require.NoError(t, err)
	defer got.Release()

	require.EqualValues(t, 5, got.NumRows())
	require.Len(t, got.Records(), 2)
	rows := got.ToRows()
	require.Equal(t, int64(5), rows[4]["n"])
}

func TestDecodeTableWithoutBatches(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "x", Type: arrow.BinaryTypes.String}}, nil)
	table := mosaic.NewTable(schema)
	defer table.Release()

	got, err := mosaic.DecodeTable(encodeTable(t, table))
	require.NoError(t, err)
	defer got.Release()

	require.Zero(t, got.NumRows())
	require.Equal(t, []string{"x"}, got.ColumnNames())
	require.Empty(t, got.ToRows())
}

func TestDecodeTableMalformed(t *testing.T) {
	valid := encodeTable(t, makeTable(t))

	for name, data := range map[string][]byte{
		"empty":     {},
		"garbage":   {0xff, 0xff, 0xff, 0xff, 0x10, 0x00, 0x00, 0x00, 'g', 'a', 'r', 'b', 'a', 'g', 'e'},
		"truncated": valid[:len(valid)-12],
	} {
		t.Run(name, func(t *testing.T) {
			table, err := mosaic.DecodeTable(data)
			require.Nil(t, table)
			var formatErr *mosaic.FormatError
			require.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestDecodeTableCutAtBatchBoundary(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{{Name: "n", Type: arrow.PrimitiveTypes.Int32}}, nil)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()

	b.Field(0).(*array.Int32Builder).AppendValues([]int32{1, 2, 3}, nil)
	first := b.NewRecord()
	b.Field(0).(*array.Int32Builder).AppendValues([]int32{4, 5}, nil)
	second := b.NewRecord()

	first.Retain()
	head := mosaic.NewTable(schema, first)
	defer head.Release()
	full := mosaic.NewTable(schema, first, second)
	defer full.Release()

	data := encodeTable(t, full)
	// schema and first batch, without the 8 byte end-of-stream marker
	headLen := len(encodeTable(t, head)) - 8
	require.Less(t, headLen, len(data)-8)
	require.Equal(t, encodeTable(t, head)[:headLen], data[:headLen])

	for name, cut := range map[string][]byte{
		"after first batch":  data[:headLen],
		"after second batch": data[:len(data)-8],
		"half marker":        data[:len(data)-4],
	} {
		t.Run(name, func(t *testing.T) {
			table, err := mosaic.DecodeTable(cut)
			require.Nil(t, table)
			var formatErr *mosaic.FormatError
			require.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestDecodeTableLegacyEndMarker(t *testing.T) {
	data := encodeTable(t, makeTable(t))
	// the 4 byte zero marker written by old IPC writers
	legacy := append(data[:len(data)-8:len(data)-8], 0, 0, 0, 0)

	got, err := mosaic.DecodeTable(legacy)
	require.NoError(t, err)
	defer got.Release()
	require.EqualValues(t, 3, got.NumRows())
}

func TestDecodeTableTrailingBytes(t *testing.T) {
	data := append(encodeTable(t, makeTable(t)), 0xde, 0xad)

	table, err := mosaic.DecodeTable(data)
	require.Nil(t, table)
	var formatErr *mosaic.FormatError
	require.ErrorAs(t, err, &formatErr)
	require.ErrorContains(t, err, "2 trailing bytes")
}

func TestEncodeNilTable(t *testing.T) {
	_, err := mosaic.EncodeTable(nil)
	require.Error(t, err)
}

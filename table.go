/*
 * Copyright 2024 ScopeDB, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package mosaic

import (
	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
)

// Table is an in-memory columnar result: named, typed columns that all have
// the same number of rows.
type Table struct {
	tbl     arrow.Table
	records []arrow.Record
}

// NewTable assembles records sharing schema into a Table. The table takes
// ownership of the records and releases them in Release.
func NewTable(schema *arrow.Schema, records ...arrow.Record) *Table {
	return &Table{
		tbl:     array.NewTableFromRecords(schema, records),
		records: records,
	}
}

// Schema returns the Arrow schema of the table.
func (t *Table) Schema() *arrow.Schema {
	return t.tbl.Schema()
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int64 {
	return t.tbl.NumRows()
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return int(t.tbl.NumCols())
}

// ColumnNames returns the column names in schema order.
func (t *Table) ColumnNames() []string {
	fields := t.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Column returns the chunked data of the named column.
func (t *Table) Column(name string) (*arrow.Chunked, bool) {
	indices := t.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return nil, false
	}
	return t.tbl.Column(indices[0]).Data(), true
}

// Records returns the record batches backing the table.
func (t *Table) Records() []arrow.Record {
	return t.records
}

// ToRows converts the table into row objects keyed by column name.
func (t *Table) ToRows() []Row {
	names := t.ColumnNames()
	rows := make([]Row, 0, t.NumRows())
	for _, rec := range t.records {
		for i := 0; i < int(rec.NumRows()); i++ {
			row := make(Row, len(names))
			for j, name := range names {
				row[name] = cellValue(rec.Column(j), i)
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// Release frees the Arrow memory held by the table.
func (t *Table) Release() {
	t.tbl.Release()
	for _, rec := range t.records {
		rec.Release()
	}
	t.records = nil
}

func cellValue(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}

	switch a := arr.(type) {
	case *array.Boolean:
		return a.Value(i)
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return uint64(a.Value(i))
	case *array.Uint16:
		return uint64(a.Value(i))
	case *array.Uint32:
		return uint64(a.Value(i))
	case *array.Uint64:
		return a.Value(i)
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Binary:
		return append([]byte(nil), a.Value(i)...)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	default:
		return arr.GetOneForMarshal(i)
	}
}

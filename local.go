package mosaic

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

// LocalConnector answers queries with an embedded SQL engine running in
// process. Results are materialised directly; there is no wire transport.
type LocalConnector struct {
	db      *sql.DB
	logger  *zap.Logger
	metrics *Metrics
	alloc   memory.Allocator
}

// Ensure LocalConnector implements Connector and Execer.
var (
	_ Connector = (*LocalConnector)(nil)
	_ Execer    = (*LocalConnector)(nil)
)

// OpenLocal opens the embedded engine at dsn.
func OpenLocal(ctx context.Context, dsn string, opts ...Option) (*LocalConnector, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open embedded engine: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		// every pooled connection would get its own private database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping embedded engine: %w", err)
	}
	return NewLocalConnector(db, opts...), nil
}

// NewLocalConnector wraps an already opened database.
func NewLocalConnector(db *sql.DB, opts ...Option) *LocalConnector {
	o := buildOptions(opts)
	return &LocalConnector{
		db:      db,
		logger:  o.logger,
		metrics: o.metrics,
		alloc:   memory.NewGoAllocator(),
	}
}

// Kind implements Connector.
func (c *LocalConnector) Kind() string {
	return BackendLocal
}

// Supports implements Connector. Every result kind is supported.
func (c *LocalConnector) Supports(kind ResultKind) bool {
	switch kind {
	case ResultKindExec, ResultKindArrow, ResultKindJSON:
		return true
	default:
		return false
	}
}

// Query implements Connector.
func (c *LocalConnector) Query(ctx context.Context, q Query) (result *Result, err error) {
	start := time.Now()
	defer func() {
		c.metrics.observeQuery(c.Kind(), q.Kind, start, err)
		if err != nil {
			c.logger.Error("local query failed", zap.String("kind", string(q.Kind)), zap.Error(err))
		}
	}()

	if err := checkQuery(c, q); err != nil {
		return nil, err
	}

	if q.Kind == ResultKindExec {
		if _, err := c.db.ExecContext(ctx, q.SQL); err != nil {
			return nil, err
		}
		return &Result{Kind: ResultKindExec}, nil
	}

	table, err := c.queryTable(ctx, q.SQL)
	if err != nil {
		return nil, err
	}
	if q.Kind == ResultKindJSON {
		defer table.Release()
		return &Result{Kind: ResultKindJSON, Rows: table.ToRows()}, nil
	}
	return &Result{Kind: ResultKindArrow, Table: table}, nil
}

// Exec implements Execer. Statements run in order; the first failure stops
// the sequence.
func (c *LocalConnector) Exec(ctx context.Context, statements ...string) error {
	for i, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			return fmt.Errorf("statement %d: %w", i, ErrEmptyStatement)
		}
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return nil
}

// Close implements Connector.
func (c *LocalConnector) Close() error {
	return c.db.Close()
}

func (c *LocalConnector) queryTable(ctx context.Context, stmt string) (*Table, error) {
	rows, err := c.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	columns := make([][]any, len(columnTypes))
	for rows.Next() {
		dest := make([]any, len(columnTypes))
		ptrs := make([]any, len(columnTypes))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range dest {
			columns[i] = append(columns[i], normalizeValue(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, len(columnTypes))
	for i, ct := range columnTypes {
		fields[i] = arrow.Field{
			Name:     ct.Name(),
			Type:     inferColumnType(columns[i], ct.DatabaseTypeName()),
			Nullable: true,
		}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(c.alloc, schema)
	defer b.Release()
	for i, values := range columns {
		for _, v := range values {
			appendValue(b.Field(i), v)
		}
	}
	return NewTable(schema, b.NewRecord()), nil
}

func normalizeValue(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}

// inferColumnType picks the Arrow type of a column from its values. Integer
// and float mixes widen to float64; any other mix falls back to string. A
// column without values takes its type from the declared column type.
func inferColumnType(values []any, declared string) arrow.DataType {
	var typ arrow.DataType
	for _, v := range values {
		if v == nil {
			continue
		}
		vt := valueType(v)
		switch {
		case typ == nil:
			typ = vt
		case arrow.TypeEqual(typ, vt):
		case isNumeric(typ) && isNumeric(vt):
			typ = arrow.PrimitiveTypes.Float64
		default:
			return arrow.BinaryTypes.String
		}
	}
	if typ == nil {
		return declaredType(declared)
	}
	return typ
}

func valueType(v any) arrow.DataType {
	switch v.(type) {
	case int64:
		return arrow.PrimitiveTypes.Int64
	case float64:
		return arrow.PrimitiveTypes.Float64
	case bool:
		return arrow.FixedWidthTypes.Boolean
	case []byte:
		return arrow.BinaryTypes.Binary
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

func isNumeric(t arrow.DataType) bool {
	return t.ID() == arrow.INT64 || t.ID() == arrow.FLOAT64
}

func declaredType(declared string) arrow.DataType {
	d := strings.ToUpper(declared)
	switch {
	case d == "":
		return arrow.Null
	case strings.Contains(d, "INT"):
		return arrow.PrimitiveTypes.Int64
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"),
		strings.Contains(d, "NUMERIC"), strings.Contains(d, "DECIMAL"):
		return arrow.PrimitiveTypes.Float64
	case strings.Contains(d, "BOOL"):
		return arrow.FixedWidthTypes.Boolean
	case strings.Contains(d, "BLOB"):
		return arrow.BinaryTypes.Binary
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

func appendValue(b array.Builder, v any) {
	if v == nil {
		b.AppendNull()
		return
	}

	switch b := b.(type) {
	case *array.Int64Builder:
		b.Append(v.(int64))
	case *array.Float64Builder:
		switch n := v.(type) {
		case int64:
			b.Append(float64(n))
		case float64:
			b.Append(n)
		}
	case *array.BooleanBuilder:
		b.Append(v.(bool))
	case *array.BinaryBuilder:
		b.Append(v.([]byte))
	case *array.TimestampBuilder:
		b.Append(arrow.Timestamp(v.(time.Time).UnixMicro()))
	case *array.StringBuilder:
		switch s := v.(type) {
		case string:
			b.Append(s)
		case []byte:
			b.Append(string(s))
		case time.Time:
			b.Append(s.UTC().Format(time.RFC3339Nano))
		default:
			b.Append(fmt.Sprint(s))
		}
	default:
		b.AppendNull()
	}
}

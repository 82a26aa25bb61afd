package mosaic

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// LoadOptions controls the statements built by LoadObjects.
type LoadOptions struct {
	// Replace drops an existing relation of the same name first.
	Replace bool
	// Temp creates a temporary relation.
	Temp bool
	// View creates a view instead of a table.
	View bool
	// Columns fixes the column order. By default the sorted union of the row
	// keys is used.
	Columns []string
}

// LoadObjects builds the statements that materialise rows as the relation
// name. Missing keys load as NULL. Run the result with Coordinator.Exec.
func LoadObjects(name string, rows []Row, opts LoadOptions) ([]string, error) {
	if name == "" {
		return nil, errors.New("relation name is required")
	}
	if len(rows) == 0 {
		return nil, errors.New("no rows to load")
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = rowColumns(rows)
	}
	if len(columns) == 0 {
		return nil, errors.New("rows have no columns")
	}

	kind := "TABLE"
	if opts.View {
		kind = "VIEW"
	}
	ident := quoteIdent(name)

	var stmts []string
	if opts.Replace {
		stmts = append(stmts, fmt.Sprintf("DROP %s IF EXISTS %s", kind, ident))
	}

	var b strings.Builder
	b.WriteString("CREATE ")
	if opts.Temp {
		b.WriteString("TEMP ")
	}
	b.WriteString(kind)
	if !opts.Replace {
		b.WriteString(" IF NOT EXISTS")
	}
	b.WriteString(" ")
	b.WriteString(ident)
	b.WriteString(" AS ")
	for i, row := range rows {
		if i > 0 {
			b.WriteString(" UNION ALL ")
		}
		b.WriteString("SELECT ")
		for j, col := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			lit, err := quoteLiteral(row[col])
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", i, col, err)
			}
			b.WriteString(lit)
			b.WriteString(" AS ")
			b.WriteString(quoteIdent(col))
		}
	}
	stmts = append(stmts, b.String())
	return stmts, nil
}

func rowColumns(rows []Row) []string {
	seen := map[string]struct{}{}
	var columns []string
	for _, row := range rows {
		for k := range row {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				columns = append(columns, k)
			}
		}
	}
	slices.Sort(columns)
	return columns
}

// quoteIdent quotes s as a SQL identifier. Embedded quotes are doubled.
func quoteIdent(s string) string {
	return quote(s, '"')
}

func quote(s string, r rune) string {
	var b bytes.Buffer
	b.WriteRune(r)
	for _, c := range s {
		if c == r {
			b.WriteRune(c)
		}
		b.WriteRune(c)
	}
	b.WriteRune(r)
	return b.String()
}

func quoteLiteral(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		return quote(v, '\''), nil
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'", nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return quoteFloat(float64(v)), nil
	case float64:
		return quoteFloat(v), nil
	case time.Time:
		return quote(v.UTC().Format(time.RFC3339Nano), '\''), nil
	case fmt.Stringer:
		return quote(v.String(), '\''), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func quoteFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "NULL"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		// keep the column REAL in the engine
		s += ".0"
	}
	return s
}

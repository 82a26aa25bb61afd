package main

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	mosaic "github.com/scopedb/mosaic-go"
)

var loadOpts mosaic.LoadOptions

var loadCmd = &cobra.Command{
	Use:   "load <table> <file.json>",
	Short: "Load a JSON array of objects as a table or view",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := readRows(args[1])
		if err != nil {
			return err
		}
		stmts, err := mosaic.LoadObjects(args[0], rows, loadOpts)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		coord, closeConn, err := openCoordinator(ctx, nil)
		if err != nil {
			return err
		}
		defer closeConn()

		if err := coord.Exec(ctx, stmts...); err != nil {
			return err
		}
		pterm.Success.Printfln("loaded %d rows into %s", len(rows), args[0])
		return nil
	},
}

func init() {
	flags := loadCmd.Flags()
	flags.BoolVar(&loadOpts.Replace, "replace", false, "replace an existing relation")
	flags.BoolVar(&loadOpts.Temp, "temp", false, "create a temporary relation")
	flags.BoolVar(&loadOpts.View, "view", false, "create a view instead of a table")
}

func readRows(path string) ([]mosaic.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var rows []mosaic.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for i, row := range rows {
		for k, v := range row {
			value, err := jsonValue(v)
			if err != nil {
				return nil, fmt.Errorf("decode %s: row %d column %s: %w", path, i, k, err)
			}
			row[k] = value
		}
	}
	return rows, nil
}

// jsonValue maps a decoded JSON value to a literal LoadObjects accepts.
// Nested objects and arrays load as their JSON text.
func jsonValue(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
		return v.String(), nil
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return v, nil
	}
}

func rowColumns(rows []mosaic.Row) []string {
	var columns []string
	for _, row := range rows {
		for k := range row {
			if !slices.Contains(columns, k) {
				columns = append(columns, k)
			}
		}
	}
	slices.Sort(columns)
	return columns
}

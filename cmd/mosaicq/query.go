package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	mosaic "github.com/scopedb/mosaic-go"
)

var (
	resultType string
	outputJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a query and print its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := mosaic.ParseResultKind(resultType)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		coord, closeConn, err := openCoordinator(ctx, nil)
		if err != nil {
			return err
		}
		defer closeConn()

		result, err := coord.Query(ctx, args[0], kind)
		if err != nil {
			return err
		}
		defer result.Release()

		switch kind {
		case mosaic.ResultKindExec:
			pterm.Success.Println("statement executed")
			return nil
		case mosaic.ResultKindArrow:
			if outputJSON {
				return printJSON(result.Table.ToRows())
			}
			return renderTable(result.Table.ColumnNames(), result.Table.ToRows())
		default:
			if outputJSON {
				return printJSON(result.Rows)
			}
			return renderTable(nil, result.Rows)
		}
	},
}

func init() {
	queryCmd.Flags().StringVarP(&resultType, "type", "t", string(mosaic.ResultKindArrow), "result type: exec, arrow or json")
	queryCmd.Flags().BoolVar(&outputJSON, "json", false, "print rows as JSON instead of a table")
}

func printJSON(rows []mosaic.Row) error {
	if rows == nil {
		rows = []mosaic.Row{}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func renderTable(columns []string, rows []mosaic.Row) error {
	if columns == nil {
		columns = rowColumns(rows)
	}
	data := pterm.TableData{columns}
	for _, row := range rows {
		line := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row[col]; ok && v != nil {
				line[i] = fmt.Sprint(v)
			} else {
				line[i] = "NULL"
			}
		}
		data = append(data, line)
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Info.Printfln("%d rows", len(rows))
	return nil
}

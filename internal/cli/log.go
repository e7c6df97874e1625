package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xyla-io/raspador/internal/display"
	"github.com/xyla-io/raspador/internal/flightlog"
)

var logCmd = &cobra.Command{
	Use:   "log <file.csv|file.db>",
	Short: "Print a saved flight log with its reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := loadRows(cmd, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, display.FormatFlightLog(rows, 0))
		fmt.Fprintln(out, display.FormatReport(rows))
		return nil
	},
}

func loadRows(cmd *cobra.Command, path string) ([]flightlog.Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return flightlog.LoadCSV(path)
	case ".db", ".sqlite", ".sqlite3":
		store, err := flightlog.OpenSQLite(cmd.Context(), path)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Rows(cmd.Context())
	}
	return nil, fmt.Errorf("%s: expected a .csv or .db flight log", path)
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/frahmantamala/employee-attendance/internal/attendance"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every attendance record to CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := attendance.ExportFormat(strings.ToLower(exportFormat))
		if !format.Valid() {
			return fmt.Errorf("unsupported format %q, use csv or xlsx", exportFormat)
		}

		ctx := context.Background()
		deps, err := initializeDependencies(ctx)
		if err != nil {
			return fmt.Errorf("failed to init dependencies: %w", err)
		}
		defer deps.Close()

		path := exportOut
		if path == "" {
			path = format.Filename(deps.AttendanceService.Rules().DateOf(time.Now()))
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}

		rows, err := deps.AttendanceService.Export(ctx, f, format)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(path)
			return fmt.Errorf("export failed: %w", err)
		}

		deps.Logger.Info("attendance exported", "path", path, "rows", rows, "format", format)
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(attendance.ExportCSV), "csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (defaults to attendance_<date>.<ext>)")
}

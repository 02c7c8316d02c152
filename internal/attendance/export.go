package attendance

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

const ExportSheet = "Attendance"

// ExportHeader is the literal column order of every export.
var ExportHeader = []string{"Date", "Employee ID", "Name", "Department", "Status", "Check In", "Check Out", "Total Hours"}

func clockTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("15:04")
}

// ExportRow renders one record in ExportHeader order.
func ExportRow(row *RecordWithProfile, loc *time.Location) []string {
	var employeeID, name, department string
	if row.Profile != nil {
		employeeID = row.Profile.EmployeeID
		name = row.Profile.Name
		department = row.Profile.Department
	}
	return []string{
		row.Date.String(),
		employeeID,
		name,
		department,
		string(row.Status),
		clockTime(row.CheckInTime, loc),
		clockTime(row.CheckOutTime, loc),
		strconv.FormatFloat(row.TotalHours, 'f', -1, 64),
	}
}

func WriteCSV(w io.Writer, rows []*RecordWithProfile, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(ExportRow(row, loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteXLSX(w io.Writer, rows []*RecordWithProfile, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return err
	}

	header := make([]interface{}, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range rows {
		values := ExportRow(row, loc)
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = v
		}
		// hours stay numeric so spreadsheets can sum them
		cells[len(cells)-1] = row.TotalHours

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &cells); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// Export writes every record, newest first, in the requested format.
func (s *Service) Export(ctx context.Context, w io.Writer, format ExportFormat) (int, error) {
	if !format.Valid() {
		return 0, fmt.Errorf("unsupported export format %q", format)
	}

	rows, err := s.repo.ListWithProfiles(ctx)
	if err != nil {
		s.logger.Error("failed to load attendance for export", "error", err)
		return 0, storeError("export", err)
	}
	records := FromDataModelWithProfile(rows)

	loc := s.rules.location()
	if format == ExportXLSX {
		err = WriteXLSX(w, records, loc)
	} else {
		err = WriteCSV(w, records, loc)
	}
	if err != nil {
		return 0, fmt.Errorf("write %s export: %w", format, err)
	}

	s.logger.Info("attendance exported", "format", format, "rows", len(records))
	return len(records), nil
}

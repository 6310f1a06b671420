// Package export renders telemetry records as CSV or an Excel workbook.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"satellite-telemetry/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV   = "csv"
	FormatExcel = "xlsx"

	ContentTypeCSV   = "text/csv"
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	dataSheet = "Telemetry"
	infoSheet = "Info"
)

// Header is the column order shared by both formats.
var Header = []string{"id", "satelliteId", "timestamp", "altitude", "velocity", "status", "created", "updated"}

// ParseFormat maps user input ("csv", "excel", "xlsx") to a supported format.
func ParseFormat(raw string) (string, error) {
	switch raw {
	case "", FormatCSV:
		return FormatCSV, nil
	case "excel", FormatExcel:
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unsupported format %q, use csv or xlsx", raw)
	}
}

func ContentType(format string) string {
	if format == FormatExcel {
		return ContentTypeExcel
	}
	return ContentTypeCSV
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func row(r models.Telemetry) []string {
	return []string{
		strconv.FormatUint(uint64(r.ID), 10),
		r.SatelliteID,
		formatTime(r.Timestamp),
		strconv.FormatFloat(r.Altitude, 'f', -1, 64),
		strconv.FormatFloat(r.Velocity, 'f', -1, 64),
		string(r.Status),
		formatTime(r.Created),
		formatTime(r.Updated),
	}
}

func WriteCSV(w io.Writer, records []models.Telemetry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(row(r)); err != nil {
			return fmt.Errorf("write row %d: %w", r.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteExcel writes a workbook with a data sheet (critical rows highlighted) and a summary sheet.
func WriteExcel(w io.Writer, records []models.Telemetry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
		return err
	}

	for i, header := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(dataSheet, cell, header); err != nil {
			return err
		}
	}

	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	for idx, r := range records {
		rowNum := idx + 2
		values := []interface{}{
			r.ID,
			r.SatelliteID,
			formatTime(r.Timestamp),
			r.Altitude,
			r.Velocity,
			string(r.Status),
			formatTime(r.Created),
			formatTime(r.Updated),
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(dataSheet, cell, &values); err != nil {
			return err
		}
	}

	last := len(records) + 1
	if len(records) > 0 {
		if err := f.SetCellStyle(dataSheet, "D2", fmt.Sprintf("E%d", last), numberStyle); err != nil {
			return err
		}

		criticalFormat, err := f.NewConditionalStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFCCCC"}, Pattern: 1},
		})
		if err != nil {
			return err
		}
		err = f.SetConditionalFormat(dataSheet, fmt.Sprintf("A2:H%d", last), []excelize.ConditionalFormatOptions{
			{
				Type:     "formula",
				Criteria: fmt.Sprintf(`$F2="%s"`, models.StatusCritical),
				Format:   &criticalFormat,
			},
		})
		if err != nil {
			return err
		}
	}

	for i := range Header {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(dataSheet, colName, colName, 22); err != nil {
			return err
		}
	}

	if err := writeInfoSheet(f, records); err != nil {
		return err
	}

	return f.Write(w)
}

// Summary aggregates what the Info sheet shows.
type Summary struct {
	Records     int
	Healthy     int
	Critical    int
	MinAltitude float64
	MaxAltitude float64
	MinVelocity float64
	MaxVelocity float64
}

func Summarize(records []models.Telemetry) Summary {
	s := Summary{Records: len(records)}
	for i, r := range records {
		switch r.Status {
		case models.StatusHealthy:
			s.Healthy++
		case models.StatusCritical:
			s.Critical++
		}
		if i == 0 {
			s.MinAltitude, s.MaxAltitude = r.Altitude, r.Altitude
			s.MinVelocity, s.MaxVelocity = r.Velocity, r.Velocity
			continue
		}
		s.MinAltitude = min(s.MinAltitude, r.Altitude)
		s.MaxAltitude = max(s.MaxAltitude, r.Altitude)
		s.MinVelocity = min(s.MinVelocity, r.Velocity)
		s.MaxVelocity = max(s.MaxVelocity, r.Velocity)
	}
	return s
}

func writeInfoSheet(f *excelize.File, records []models.Telemetry) error {
	if _, err := f.NewSheet(infoSheet); err != nil {
		return err
	}

	s := Summarize(records)
	rows := [][]interface{}{
		{"Report Generated", time.Now().UTC().Format(time.RFC3339)},
		{"Total Records", s.Records},
		{"Healthy", s.Healthy},
		{"Critical", s.Critical},
		{"Altitude Range (km)", fmt.Sprintf("%.3f - %.3f", s.MinAltitude, s.MaxAltitude)},
		{"Velocity Range (km/s)", fmt.Sprintf("%.3f - %.3f", s.MinVelocity, s.MaxVelocity)},
	}
	for i, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(infoSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SetColWidth(infoSheet, "A", "B", 28)
}

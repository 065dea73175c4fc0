package report

import (
	"fmt"
	"io"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
)

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

const (
	dailySheet = "Daily"
	topSheet   = "Top Products"
)

// WriteCSV writes the daily series as CSV
func WriteCSV(w io.Writer, rep Report) error {
	rows := rep.Daily
	if rows == nil {
		rows = []DayRow{}
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("marshal csv: %w", err)
	}
	return nil
}

// WriteXLSX writes the daily series and the top products as a workbook
func WriteXLSX(w io.Writer, rep Report) error {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", dailySheet)

	writeRow(f, dailySheet, 1, "Date", "Products submitted", "Swaps requested", "Swaps accepted", "Shoutouts", "Signups")
	for i, d := range rep.Daily {
		writeRow(f, dailySheet, i+2, d.Date, d.Products, d.SwapsRequested, d.SwapsAccepted, d.Shoutouts, d.Signups)
	}

	f.NewSheet(topSheet)
	writeRow(f, topSheet, 1, "Product ID", "Name", "Swaps", "Shoutouts", "Average rating")
	for i, p := range rep.TopProducts {
		writeRow(f, topSheet, i+2, p.ProductID.String(), p.Name, p.Swaps, p.Shoutouts, p.AvgRating)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// writeRow fills one row starting at column A. Rows are 1-based.
func writeRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for col, v := range values {
		f.SetCellValue(sheet, fmt.Sprintf("%c%d", 'A'+col, row), v)
	}
}

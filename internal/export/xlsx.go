// Package export renders maintenance requests as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/ukydev/gearguard/internal/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the requests are written to.
const SheetName = "Requests"

// ContentType is the MIME type of the workbook written by WriteRequests.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []string{
	"Subject", "Equipment", "Category", "Type", "Priority", "Stage",
	"Team", "Technician", "Scheduled", "Duration (h)", "Overdue", "Created",
}

// WriteRequests writes rows as an XLSX workbook with a styled header row.
func WriteRequests(w io.Writer, rows []models.ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(SheetName, "A", lastCol, 18); err != nil {
		return err
	}

	for i, r := range rows {
		scheduled := ""
		if r.ScheduledDate != nil {
			scheduled = r.ScheduledDate.Format("2006-01-02 15:04")
		}
		overdue := "No"
		if r.Overdue {
			overdue = "Yes"
		}
		values := []interface{}{
			r.Subject, r.Equipment, string(r.Category), string(r.Type), string(r.Priority), string(r.Stage),
			r.Team, r.Technician, scheduled, r.Duration, overdue, r.CreatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

package attendance

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportWeek writes the weekly grid as an xlsx workbook: one row per employee, one column per day
func ExportWeek(w io.Writer, weekStart time.Time, rows []WeekRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Week " + weekStart.Format(time.DateOnly)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("could not name sheet: %w", err)
	}

	header := []string{"Employee", "Code"}
	for i := 0; i < 7; i++ {
		header = append(header, weekStart.AddDate(0, 0, i).Format("Mon 02 Jan"))
	}
	for col, title := range header {
		if err := setCell(f, sheet, col+1, 1, title); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("could not create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return fmt.Errorf("could not style header: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", "I", 22); err != nil {
		return err
	}

	for i, row := range rows {
		r := i + 2
		if err := setCell(f, sheet, 1, r, row.Name); err != nil {
			return err
		}
		if err := setCell(f, sheet, 2, r, row.Code); err != nil {
			return err
		}
		for day, cell := range row.Cells {
			if err := setCell(f, sheet, day+3, r, cellText(cell)); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("could not write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, name, value); err != nil {
		return fmt.Errorf("could not set %s: %w", name, err)
	}
	return nil
}

func cellText(c Cell) string {
	switch c.Status {
	case StatusUpcoming, StatusLeave:
		return string(c.Status)
	}
	text := string(c.Status)
	if c.Late {
		text += " (Late)"
	}
	return fmt.Sprintf("%s %s-%s %s", text, c.CheckIn, c.CheckOut, c.Worked)
}

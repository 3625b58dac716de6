package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"semaphore/roster/internal/service"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	SheetName   = "Students"
)

var rosterHeader = []string{
	"Student Code", "First Name", "Last Name", "Email", "Phone",
	"Grade", "Section", "Class", "Roll No", "Parent Name", "Parent Phone", "Created At",
}

// Filename names a roster export generated at the given time.
func Filename(at time.Time) string {
	return fmt.Sprintf("roster-%s.xlsx", at.UTC().Format("20060102-150405"))
}

// WriteRoster renders students as a single-sheet workbook, one row per student
// under a bold header row.
func WriteRoster(w io.Writer, students []service.StudentView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, title := range rosterHeader {
		if err := f.SetCellValue(SheetName, cell(i, 1), title); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(rosterHeader))
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetName, "A", lastCol, 16)
	_ = f.SetColWidth(SheetName, "D", "D", 28)

	for i, student := range students {
		row := i + 2
		values := []any{
			student.StudentCode,
			student.FirstName,
			student.LastName,
			student.Email,
			deref(student.Phone),
			deref(student.Grade),
			deref(student.Section),
			deref(student.ClassName),
			deref(student.RollNo),
			deref(student.ParentName),
			deref(student.ParentPhone),
			student.CreatedAt.UTC().Format(time.RFC3339),
		}
		for col, value := range values {
			if err := f.SetCellValue(SheetName, cell(col, row), value); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

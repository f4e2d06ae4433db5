// Package report renders a batch result into an XLSX workbook, one row
// per unit plus a summary block, for whoever audits the conversion run.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/capella-tools/capscan-batch/internal/batch"
)

const sheet = "Batch"

// Write renders result to an XLSX file at path.
func Write(path string, result batch.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// Drop the default sheet so the workbook opens on ours.
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	headers := []string{"Input", "Output", "Stage", "Status", "Error", "Duration (s)"}
	for i, h := range headers {
		write(i+1, 1, h)
	}

	row := 2
	for _, u := range result.Units {
		status := "failed"
		if u.Succeeded {
			status = "ok"
		}
		write(1, row, u.Input)
		write(2, row, u.Output)
		write(3, row, string(u.Stage))
		write(4, row, status)
		write(5, row, u.Error)
		write(6, row, fmt.Sprintf("%.1f", u.Duration.Seconds()))
		row++
	}

	row++
	write(1, row, "Run ID")
	write(2, row, result.RunID)
	row++
	write(1, row, "Total")
	write(2, row, result.Total)
	row++
	write(1, row, "Succeeded")
	write(2, row, result.Succeeded)
	row++
	write(1, row, "Failed")
	write(2, row, result.Failed)
	row++
	write(1, row, "Duration (s)")
	write(2, row, fmt.Sprintf("%.1f", result.Duration.Seconds()))

	_ = f.SetColWidth(sheet, "A", "B", 48) // paths
	_ = f.SetColWidth(sheet, "C", "D", 14)
	_ = f.SetColWidth(sheet, "E", "E", 48) // errors
	_ = f.SetColWidth(sheet, "F", "F", 14)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

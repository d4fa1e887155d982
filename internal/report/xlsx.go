package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const sheet = "Receipts"

// WriteXLSX writes rows as a single-sheet workbook. Confidences are stored
// as numbers.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for r, row := range rows {
		values := []any{
			row.File,
			row.Engine,
			row.OCRConfidence,
			row.Source,
			row.Confidence,
			row.Date,
			row.Mileage,
			row.Price,
			row.Works,
			row.Materials,
			row.Error,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing cell %s: %w", cell, err)
			}
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 32) // file
	_ = f.SetColWidth(sheet, "I", "J", 48) // works, materials
	_ = f.SetColWidth(sheet, "K", "K", 40) // error

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes one workbook with a sheet per table. Numeric cells stay
// numeric; nulls are left blank.
func WriteXLSX(w io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.View); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", t.View, err)
			}
		} else if _, err := f.NewSheet(t.View); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", t.View, err)
		}

		for col, h := range t.Header {
			if err := setCell(f, t.View, col, 1, h); err != nil {
				return err
			}
		}
		for r, row := range t.Rows {
			for col, c := range row {
				if c == nil {
					continue
				}
				if err := setCell(f, t.View, col, r+2, c); err != nil {
					return err
				}
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	ref, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return fmt.Errorf("invalid cell %d,%d: %w", col+1, row, err)
	}
	if err := f.SetCellValue(sheet, ref, value); err != nil {
		return fmt.Errorf("failed to set %s!%s: %w", sheet, ref, err)
	}
	return nil
}

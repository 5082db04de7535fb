package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes t as comma-separated values with a header row.
func WriteCSV(w io.Writer, t Table, precision int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(t.Strings(precision)); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

package export

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/ginjaninja78/meteragg/internal/engine"
)

// WritePDF renders a short report with the yearly rollup and the monthly
// totals of result.
func WritePDF(w io.Writer, result *engine.Result, precision int) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Meter Data Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", result.RunID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Directory: %s", result.Directory))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", result.StartedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Files: %d  Warnings: %d", len(result.Files), len(result.Warnings)))
	pdf.Ln(10)

	yearly, _ := TableFor(result.Views, ViewYearly)
	monthly, _ := TableFor(result.Views, ViewMonthly)

	pdfTable(pdf, "Yearly rollup", yearly, precision, []float64{18, 26, 26, 30, 30, 30, 30})
	pdf.Ln(6)
	pdfTable(pdf, "Monthly totals", monthly, precision, []float64{30, 40, 40})

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}

func pdfTable(pdf *gofpdf.Fpdf, title string, t Table, precision int, widths []float64) {
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, title)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 8)
	for i, h := range t.Header {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range t.Strings(precision) {
		for i, c := range row {
			align := "R"
			if i == 0 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// =============================================================================
// Meter Aggregator - Export Writer
// =============================================================================
//
// This module writes a run result to the output directory in every
// requested format:
//
//   csv      one file per view
//   json     the whole result
//   xlsx     one workbook, one sheet per view
//   parquet  series and monthly record files
//   pdf      yearly and monthly report
//
// File names follow output_name_format, e.g. "{view}_{run}.{ext}".
//
// =============================================================================

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/meteragg/internal/engine"
	"github.com/ginjaninja78/meteragg/pkg/utils"
)

// Writer writes exports into Dir.
type Writer struct {
	// Dir is the output directory. It must exist.
	Dir string

	// NameFormat is the output file name format.
	NameFormat string

	// Precision is the number of decimals in CSV cells.
	Precision int
}

// NewWriter creates a Writer.
func NewWriter(dir, nameFormat string, precision int) *Writer {
	if nameFormat == "" {
		nameFormat = "{view}_{run}.{ext}"
	}
	return &Writer{Dir: dir, NameFormat: nameFormat, Precision: precision}
}

// Write writes result in every format and returns the created paths in
// order.
func (w *Writer) Write(result *engine.Result, formats []string) ([]string, error) {
	var written []string
	for _, format := range formats {
		paths, err := w.writeFormat(result, strings.ToLower(format))
		written = append(written, paths...)
		if err != nil {
			return written, fmt.Errorf("failed to export %s: %w", format, err)
		}
	}
	return written, nil
}

func (w *Writer) writeFormat(result *engine.Result, format string) ([]string, error) {
	switch format {
	case "csv":
		var paths []string
		for _, t := range Tables(result.Views) {
			var buf bytes.Buffer
			if err := WriteCSV(&buf, t, w.Precision); err != nil {
				return paths, err
			}
			path, err := w.save(result, t.View, "csv", buf.Bytes())
			if err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
		return paths, nil

	case "json":
		var buf bytes.Buffer
		if err := WriteJSON(&buf, result); err != nil {
			return nil, err
		}
		return w.saveOne(result, "result", "json", buf.Bytes())

	case "xlsx":
		var buf bytes.Buffer
		if err := WriteXLSX(&buf, Tables(result.Views)); err != nil {
			return nil, err
		}
		return w.saveOne(result, "report", "xlsx", buf.Bytes())

	case "parquet":
		series := w.path(result, "series", "parquet")
		if err := WriteParquet(SeriesRecords(result.RunID, result.Views), series); err != nil {
			return nil, err
		}
		monthly := w.path(result, ViewMonthly, "parquet")
		if err := WriteParquet(MonthlyRecords(result.RunID, result.Views), monthly); err != nil {
			return []string{series}, err
		}
		return []string{series, monthly}, nil

	case "pdf":
		var buf bytes.Buffer
		if err := WritePDF(&buf, result, w.Precision); err != nil {
			return nil, err
		}
		return w.saveOne(result, "report", "pdf", buf.Bytes())

	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func (w *Writer) path(result *engine.Result, view, ext string) string {
	name := utils.GenerateOutputFileName(w.NameFormat, map[string]string{
		"view": view,
		"run":  result.ShortID(),
		"ext":  ext,
	})
	return filepath.Join(w.Dir, name)
}

func (w *Writer) save(result *engine.Result, view, ext string, data []byte) (string, error) {
	path := w.path(result, view, ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (w *Writer) saveOne(result *engine.Result, view, ext string, data []byte) ([]string, error) {
	path, err := w.save(result, view, ext, data)
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}

package export

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// RenderTable writes t as a human-readable table.
func RenderTable(w io.Writer, t Table, precision int) error {
	table := tablewriter.NewWriter(w)
	table.Header(t.Header)

	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	if err := table.Bulk(t.Strings(precision)); err != nil {
		return fmt.Errorf("failed to add %s rows: %w", t.View, err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render %s table: %w", t.View, err)
	}
	return nil
}

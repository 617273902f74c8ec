package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/clierr"
)

// newTable returns a left-aligned, non-wrapping table writing to w.
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	return table
}

func formatPrice(v float64) string { return fmt.Sprintf("₹%.2f", v) }

// oneLine collapses line breaks so a value fits in a table cell.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return clierr.New(clierr.Validation, err.Error(), err)
}

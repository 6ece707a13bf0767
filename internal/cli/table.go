package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// writeTable prints rows as aligned columns. Short rows are padded so every
// line has the header's width. With no headers the rows are a key/value list.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	width := len(headers)
	for _, row := range rows {
		width = max(width, len(row))
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	line := func(cells []string) {
		padded := make([]string, width)
		copy(padded, cells)
		fmt.Fprintln(tw, strings.TrimRight(strings.Join(padded, "\t"), "\t"))
	}
	if len(headers) > 0 {
		line(headers)
	}
	for _, row := range rows {
		line(row)
	}
	return tw.Flush()
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func formatSeconds(value float64) string {
	return fmt.Sprintf("%gs", value)
}

package output

import (
	"io"

	"github.com/agentstation/cmdboard/internal/server"
)

// RoutesToData converts a route table to table rows. Wide output adds the
// ServeMux pattern each route is registered under.
func RoutesToData(routes []server.Route, wide bool) Data {
	headers := []string{"Kind", "Path", "Label", "Target", "Listed"}
	align := []Align{AlignLeft, AlignLeft, AlignLeft, AlignLeft, AlignCenter}
	if wide {
		headers = append(headers, "Pattern")
		align = append(align, AlignLeft)
	}

	rows := make([][]string, 0, len(routes))
	for _, r := range routes {
		listed := "no"
		if r.Listed {
			listed = "yes"
		}
		target := r.Target
		if target == "" {
			target = "-"
		}
		row := []string{r.Kind.String(), r.Path, r.Label, target, listed}
		if wide {
			row = append(row, r.Pattern)
		}
		rows = append(rows, row)
	}

	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: align,
	}
}

// FormatRoutes writes the route table to w in the given format.
func FormatRoutes(w io.Writer, routes []server.Route, format Format) error {
	formatter := NewFormatter(format)

	var data any
	switch format {
	case FormatTable, FormatWide, FormatMarkdown, "":
		data = RoutesToData(routes, format == FormatWide)
	default:
		data = routes
	}

	return formatter.Format(w, data)
}

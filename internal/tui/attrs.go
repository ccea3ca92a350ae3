package tui

import (
	"fmt"

	table "github.com/charmbracelet/bubbles/table"

	"mapsect/internal/geometry"
)

// refreshAttrsFromCurrent rebuilds the table from the polygons of the last result.
func (m *Model) refreshAttrsFromCurrent() {
	cols, rows := m.buildAttributes()
	// If there are no rows, disable the table view to avoid rendering panics
	if len(rows) == 0 {
		// Do not touch table internals here to avoid re-render during SetColumns
		m.showAttrs = false
		m.status = "no result polygons"
		return
	}
	tcols := make([]table.Column, 0, len(cols)+1)
	tcols = append(tcols, table.Column{Title: "#", Width: 4})
	for _, c := range cols {
		tcols = append(tcols, table.Column{Title: c.title, Width: c.width})
	}
	trows := make([]table.Row, 0, len(rows))
	for i, r := range rows {
		trows = append(trows, table.Row(append([]string{fmt.Sprintf("%d", i+1)}, r...)))
	}
	// Avoid transient mismatch: clear rows, set columns, then set rows
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(tcols)
	m.tbl.SetRows(trows)
}

type column struct {
	title string
	width int
}

// buildAttributes lists every polygon of the result with its size.
func (m *Model) buildAttributes() ([]column, [][]string) {
	cols := []column{{"vertices", 9}, {"holes", 6}, {"area", 12}, {"bounds", 44}}
	if m.res == nil {
		return cols, nil
	}
	var rows [][]string
	for _, p := range geometry.Polygons(m.res.Geom) {
		b := geometry.Bounds(p)
		rows = append(rows, []string{
			fmt.Sprintf("%d", len(geometry.Coords(p))),
			fmt.Sprintf("%d", p.NumInteriorRings()),
			fmt.Sprintf("%.4g", p.Area()),
			fmt.Sprintf("[%.4g, %.4g, %.4g, %.4g]", b.X.Lo, b.Y.Lo, b.X.Hi, b.Y.Hi),
		})
	}
	return cols, rows
}

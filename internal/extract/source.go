package extract

import (
	"strings"
	"time"

	"ledgerflow/internal"
)

// Cell is one spreadsheet value. Number is set for numeric cells and Time
// for cells carrying a date, in which case Number holds the serial value.
type Cell struct {
	Text   string
	Number *float64
	Time   *time.Time
}

func TextCell(s string) Cell { return Cell{Text: s} }

func NumberCell(v float64) Cell { return Cell{Number: &v} }

func DateCell(t time.Time) Cell { return Cell{Time: &t, Text: t.Format("2006-01-02")} }

func (c Cell) Empty() bool {
	return c.Number == nil && c.Time == nil && strings.TrimSpace(c.Text) == ""
}

type Grid [][]Cell

// At returns the zero Cell outside the ragged grid.
func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return Cell{}
	}
	return g[row][col]
}

// Source is one document as handed over by a back-end: page text for PDFs,
// a cell grid for spreadsheets.
type Source struct {
	Kind internal.SourceKind
	Name string
	Text string
	Grid Grid
}

func (s Source) IsGrid() bool {
	return s.Kind == internal.SourceXLSX
}

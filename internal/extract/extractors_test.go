package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ledgerflow/internal"
	"ledgerflow/internal/reference"
)

const salesText = `Weekly Sales Statement
Document Date 14/6/25
Document Number DEL/22/2025
Chain Supermarket
12 Triq il-Kbira
Tarxien, TXN 9044
Invoice for week 24 June 8/6/25 14/6/25
Commission due €1,234.56
`

func textSource(text string) Source {
	return Source{Kind: internal.SourcePDF, Name: "statement.pdf", Text: text}
}

func TestTextExtractors(t *testing.T) {
	src := textSource(salesText)
	h := Hint{Locality: "Tarxien", Category: internal.CategorySales, Ref: reference.Default()}

	assert.Equal(t, "14/6/25", Date(src, h).String())
	assert.Equal(t, "DEL/22/2025", DocumentReference(src, h).String())
	assert.Equal(t, "Tarxien", TextLocality(src.Text).String())
	assert.Equal(t, "Tarxien", Locality(src, h).String())
	assert.Equal(t, "Chain Supermarket Tarxien - Wk24 (08.06.25-14.06.25)", Description(src, h).String())
	assert.Equal(t, "1,234.56", Total(src, h).String())

	net := Net(src, h)
	assert.Equal(t, StatusNotFound, net.Status)
	assert.ErrorIs(t, net.Err(), ErrNotFound)
}

func TestTextDescriptionVariants(t *testing.T) {
	ref := reference.Default()

	noLoc := Description(textSource("Invoice for week 3 Jan 1/1/25 7/1/25"), Hint{Ref: ref})
	assert.Equal(t, "Chain Supermarket - Wk3 (01.01.25-07.01.25)", noLoc.String())

	alias := Description(textSource("Invoice for week 3 Jan 1/1/25 7/1/25"), Hint{Locality: "Carters", Ref: ref})
	assert.Equal(t, "Chain Supermarket Tarxien - Wk3 (01.01.25-07.01.25)", alias.String())

	noPair := Description(textSource("Invoice for week 12 March period"), Hint{Locality: "Fgura", Ref: ref})
	assert.Equal(t, "Week 12 - March period", noPair.String())

	missing := Description(textSource("nothing here"), Hint{})
	assert.False(t, missing.Found())
	assert.Equal(t, "", missing.String())
}

func TestTextReferenceWithoutLabel(t *testing.T) {
	src := textSource("Ref: INV/7/2024 issued")
	assert.Equal(t, "INV/7/2024", DocumentReference(src, Hint{}).String())
	assert.False(t, DocumentReference(textSource("no number"), Hint{}).Found())
}

func rentGrid() Grid {
	g := make(Grid, 10)
	g[0] = []Cell{DateCell(time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC))}
	g[2] = []Cell{TextCell("Statement"), {}, TextCell("DEL/19/2025")}
	g[7] = []Cell{TextCell("Commission on Turnover Week 19"), {}, {}, {}, {}, {}, NumberCell(150.5)}
	g[8] = []Cell{TextCell("VAT @ 18%"), {}, {}, {}, {}, {}, NumberCell(27.09)}
	return g
}

func gridSource(g Grid) Source {
	return Source{Kind: internal.SourceXLSX, Name: "delicatessen Fgura wk19.xlsx", Grid: g}
}

func TestGridExtractors(t *testing.T) {
	src := gridSource(rentGrid())
	ref := reference.Default()
	purchases := Hint{Locality: "Fgura", Category: internal.CategoryPurchases, Ref: ref}
	sales := Hint{Locality: "Fgura", Category: internal.CategorySales, Ref: ref}

	assert.Equal(t, "11/05/25", Date(src, purchases).String())
	assert.Equal(t, "DEL/19/2025", DocumentReference(src, purchases).String())
	assert.Equal(t, "150.50", Net(src, purchases).String())
	assert.Equal(t, "27.09", VAT(src, purchases).String())
	assert.Equal(t, "177.59", Total(src, purchases).String())
	assert.Equal(t, "Chain Supermarket Fgura - Rent for Week 19 2025", Description(src, purchases).String())
	assert.Equal(t, "Chain Supermarket Fgura - Wk19 (period)", Description(src, sales).String())
	assert.Equal(t, "Fgura", Locality(src, Hint{}).String())
}

func TestGridDateFromISOText(t *testing.T) {
	g := Grid{
		{TextCell("Rent statement")},
		{NumberCell(42)},
		{TextCell("2025-06-14 00:00:00")},
	}
	assert.Equal(t, "14/06/25", Date(gridSource(g), Hint{}).String())

	bad := Date(gridSource(Grid{{TextCell("2025-13-40")}}), Hint{})
	assert.Equal(t, StatusParseError, bad.Status)
	assert.Equal(t, "", bad.String())

	assert.False(t, Date(gridSource(Grid{}), Hint{}).Found())
}

func TestGridAmountParseError(t *testing.T) {
	g := Grid{{TextCell("Commission on Turnover Week 2"), {}, {}, {}, {}, {}, TextCell("n/a")}}
	r := Net(gridSource(g), Hint{})
	assert.Equal(t, StatusParseError, r.Status)
	assert.Error(t, r.Err())
	assert.Equal(t, "", r.String())
	assert.False(t, Total(gridSource(g), Hint{}).Found())
}

func TestGridAmountSkipsEmptyCell(t *testing.T) {
	g := Grid{
		{TextCell("Commission on Turnover Week 2")},
		{TextCell("Commission on Turnover Week 2"), {}, {}, {}, {}, {}, TextCell("1,200.5")},
	}
	assert.Equal(t, "1200.50", Net(gridSource(g), Hint{}).String())
}

func TestFilenameLocality(t *testing.T) {
	cases := map[string]string{
		"delicatessen Zabbar wk12.xlsx":  "Zabbar",
		"Delicatessen Fgura 12.xlsx":     "Fgura",
		"Weekly Sales - Tarxien Wk07.pdf": "Tarxien",
		"random.xlsx":                    UnknownLocality,
	}
	for name, want := range cases {
		assert.Equal(t, want, FilenameLocality(name), name)
	}
}

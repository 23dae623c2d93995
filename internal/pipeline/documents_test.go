package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ledgerflow/internal"
)

func mkXLSX(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf := bytes.NewBuffer(nil)
	_, err := f.WriteTo(buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// rentStatement is a delicatessen workbook as the branches send it.
func rentStatement(t *testing.T, date time.Time, week string, net, vat float64) []byte {
	return mkXLSX(t, [][]any{
		{date},
		{"Chain Supermarket"},
		{"Statement", nil, "DEL/" + week + "/2025"},
		{},
		{},
		{},
		{},
		{"Commission on Turnover Week " + week, nil, nil, nil, nil, nil, net},
		{"VAT @ 18%", nil, nil, nil, nil, nil, vat},
	})
}

func mkEML(t *testing.T, attachments map[string][]byte) []byte {
	t.Helper()
	b := enmime.Builder().
		From("Accounts", "accounts@example.com").
		To("Ledger", "ledger@example.com").
		Subject("Weekly statements").
		Text([]byte("Statements attached."))
	for name, content := range attachments {
		b = b.AddAttachment(content, "application/octet-stream", name)
	}
	part, err := b.Build()
	require.NoError(t, err)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, part.Encode(buf))
	return buf.Bytes()
}

func writeTestFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestXLSXGridTypesCells(t *testing.T) {
	blob := rentStatement(t, time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC), "19", 150.5, 27.09)

	g, err := xlsxGrid(blob)
	require.NoError(t, err)

	date := g.At(0, 0)
	require.NotNil(t, date.Time)
	assert.Equal(t, "2025-05-11", date.Time.Format("2006-01-02"))

	amount := g.At(7, 6)
	require.NotNil(t, amount.Number)
	assert.Nil(t, amount.Time)
	assert.InDelta(t, 150.5, *amount.Number, 1e-9)

	label := g.At(2, 2)
	assert.Equal(t, "DEL/19/2025", label.Text)
	assert.Nil(t, label.Number)
	assert.True(t, g.At(4, 0).Empty())
}

func TestFileReaderReadsAttachment(t *testing.T) {
	dir := t.TempDir()
	name := "delicatessen Fgura wk19.xlsx"
	path := filepath.Join(dir, "mail.eml")
	writeTestFile(t, path, mkEML(t, map[string][]byte{
		name: rentStatement(t, time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC), "19", 150.5, 27.09),
	}))

	src, err := FileReader{}.Read(Document{Path: path, Name: name, Attachment: name, Kind: internal.SourceXLSX})
	require.NoError(t, err)
	assert.True(t, src.IsGrid())
	assert.Equal(t, name, src.Name)
	assert.Equal(t, "Commission on Turnover Week 19", src.Grid.At(7, 0).Text)

	_, err = FileReader{}.Read(Document{Path: path, Name: "other.pdf", Attachment: "other.pdf", Kind: internal.SourcePDF})
	assert.ErrorContains(t, err, "not found")
}

func TestFileReaderRejectsBrokenPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	writeTestFile(t, path, []byte("not a pdf"))

	_, err := FileReader{}.Read(Document{Path: path, Name: "broken.pdf", Kind: internal.SourcePDF})
	assert.Error(t, err)
}

func TestIsDateLayout(t *testing.T) {
	assert.True(t, isDateLayout("dd/mm/yyyy"))
	assert.True(t, isDateLayout(`[$-409]d-mmm-yy;@`))
	assert.False(t, isDateLayout(`#,##0.00 "days"`))
	assert.False(t, isDateLayout("0.00"))
}

package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"ledgerflow/internal"
	"ledgerflow/internal/extract"
	"ledgerflow/internal/util"
)

// Document is one unit of work. When Attachment is set the content lives in
// that attachment of the message stored at Path. Occurrence numbers
// attachments sharing a name within one message, starting at 1.
type Document struct {
	Path       string
	Name       string
	Attachment string
	Occurrence int
	Kind       internal.SourceKind
	Category   internal.Category
	Hash       string
}

func (d Document) Label() string {
	if d.Attachment == "" {
		return d.Path
	}
	if d.Occurrence > 1 {
		return fmt.Sprintf("%s#%s (%d)", d.Path, d.Attachment, d.Occurrence)
	}
	return d.Path + "#" + d.Attachment
}

// Reader turns a document into page text or a cell grid.
type Reader interface {
	Read(doc Document) (extract.Source, error)
}

type FileReader struct{}

func (FileReader) Read(doc Document) (extract.Source, error) {
	content, err := documentContent(doc)
	if err != nil {
		return extract.Source{}, err
	}
	src := extract.Source{Kind: doc.Kind, Name: doc.Name}
	switch doc.Kind {
	case internal.SourcePDF:
		src.Text, err = pdfText(content)
	case internal.SourceXLSX:
		src.Grid, err = xlsxGrid(content)
	default:
		err = fmt.Errorf("unsupported document kind: %s", doc.Kind)
	}
	if err != nil {
		return extract.Source{}, err
	}
	return src, nil
}

func documentContent(doc Document) ([]byte, error) {
	if doc.Attachment == "" {
		return os.ReadFile(doc.Path)
	}
	parts, err := messageAttachments(doc.Path)
	if err != nil {
		return nil, err
	}
	want := max(doc.Occurrence, 1)
	for _, p := range parts {
		if attachmentName(p) != doc.Attachment {
			continue
		}
		if want--; want == 0 {
			return p.Content, nil
		}
	}
	return nil, fmt.Errorf("attachment %q not found in %s", doc.Attachment, doc.Path)
}

func messageAttachments(path string) ([]*enmime.Part, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	parts := make([]*enmime.Part, 0, len(env.Attachments)+len(env.Inlines))
	parts = append(parts, env.Attachments...)
	parts = append(parts, env.Inlines...)
	return parts, nil
}

func attachmentName(p *enmime.Part) string {
	return strings.TrimSpace(p.FileName)
}

// pdfText returns the first page as lines rebuilt from positioned text runs.
func pdfText(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return "", err
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			if line := rowText(row.Content); line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n"), nil
	}
	return "", errors.New("pdf has no readable pages")
}

func rowText(texts []pdf.Text) string {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	end := 0.0
	for i, t := range sorted {
		if i > 0 && t.X-end > t.FontSize*0.2 {
			b.WriteByte(' ')
		}
		b.WriteString(t.S)
		end = t.X + t.W
	}
	return util.NormalizeSpaces(b.String())
}

// xlsxGrid reads the first sheet. Numeric cells formatted as dates come back
// with Time set.
func xlsxGrid(content []byte) (extract.Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	grid := make(extract.Grid, len(rows))
	for r, row := range rows {
		cells := make([]extract.Cell, len(row))
		for c, raw := range row {
			cells[c] = readCell(f, sheet, r, c, raw, date1904)
		}
		grid[r] = cells
	}
	return grid, nil
}

func readCell(f *excelize.File, sheet string, r, c int, raw string, date1904 bool) extract.Cell {
	cell := extract.Cell{Text: raw}
	if strings.TrimSpace(raw) == "" {
		return cell
	}
	name, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return cell
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return cell
	}
	switch typ {
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			cell.Time = &t
		}
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return cell
		}
		cell.Number = &v
		if hasDateFormat(f, sheet, name) {
			if t, err := excelize.ExcelDateToTime(v, date1904); err == nil {
				cell.Time = &t
			}
		}
	}
	return cell
}

func hasDateFormat(f *excelize.File, sheet, cell string) bool {
	id, err := f.GetCellStyle(sheet, cell)
	if err != nil || id == 0 {
		return false
	}
	style, err := f.GetStyle(id)
	if err != nil || style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		return isDateLayout(*style.CustomNumFmt)
	}
	n := style.NumFmt
	return (n >= 14 && n <= 22) || (n >= 27 && n <= 36) || (n >= 45 && n <= 47) || (n >= 50 && n <= 58)
}

// isDateLayout reports whether a custom number format shows a day or year.
func isDateLayout(layout string) bool {
	var b strings.Builder
	quoted, bracket := false, false
	for _, r := range strings.ToLower(layout) {
		switch {
		case r == '"':
			quoted = !quoted
		case r == '[' && !quoted:
			bracket = true
		case r == ']' && !quoted:
			bracket = false
		case !quoted && !bracket:
			b.WriteRune(r)
		}
	}
	s := b.String()
	return strings.ContainsAny(s, "dy")
}

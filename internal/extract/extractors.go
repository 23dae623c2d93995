package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerflow/internal"
	"ledgerflow/internal/reference"
	"ledgerflow/internal/util"
)

const (
	UnknownLocality = "Unknown"

	commissionLabel = "Commission on Turnover"
	vatLabel        = "VAT @"
	amountColumn    = 6
	dateScanRows    = 10
	rentYear        = "2025"
)

var (
	reTextDate      = regexp.MustCompile(`Document Date\s+(\d{1,2}/\d{1,2}/\d{2,4})`)
	reTextDocNumber = regexp.MustCompile(`Document Number\s+([A-Za-z0-9/-]+)`)
	reReference     = regexp.MustCompile(`\b[A-Z]{2,}/\d+/\d{4}\b`)
	reTextLocality  = regexp.MustCompile(`([A-Za-z]+),\s+[A-Z]{2,4}\s+\d+`)
	reInvoiceWeek   = regexp.MustCompile(`Invoice for week (\d+)\s+([^\n]+)`)
	reDatePair      = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2,4})\s+(\d{1,2}/\d{1,2}/\d{2,4})`)
	reTextTotal     = regexp.MustCompile(`Invoice for week \d+[^€]*€\s*([0-9,]+\.?\d*)`)
	reISODate       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	reRowWeek       = regexp.MustCompile(`Week (\d+)`)

	reFileDelicatessen = regexp.MustCompile(`(?i)delicatessen\s+(\w+)\s+(?:wk)?\d+`)
	reFileWeeklySales  = regexp.MustCompile(`(?i)Weekly Sales - (\w+)`)
)

// Hint carries what an extractor may know beyond the document itself.
type Hint struct {
	Locality string
	Category internal.Category
	Ref      *reference.Table
}

func (h Hint) displayLocality() string {
	if h.Ref == nil {
		return h.Locality
	}
	return h.Ref.DisplayName(h.Locality)
}

func Date(src Source, _ Hint) Result {
	if src.IsGrid() {
		return gridDate(src.Grid)
	}
	if m := reTextDate.FindStringSubmatch(src.Text); m != nil {
		return OK(m[1])
	}
	return NotFound()
}

func gridDate(g Grid) Result {
	var lastErr error
	for r := 0; r < len(g) && r < dateScanRows; r++ {
		c := g.At(r, 0)
		if c.Time != nil {
			return OK(c.Time.Format("02/01/06"))
		}
		text := strings.TrimSpace(c.Text)
		if c.Number != nil || !reISODate.MatchString(text) {
			continue
		}
		t, err := time.Parse("2006-01-02", text[:10])
		if err != nil {
			lastErr = err
			continue
		}
		return OK(t.Format("02/01/06"))
	}
	if lastErr != nil {
		return ParseError(lastErr)
	}
	return NotFound()
}

// DocumentReference finds the invoice number. Text documents prefer the
// labelled "Document Number" value.
func DocumentReference(src Source, _ Hint) Result {
	if src.IsGrid() {
		for _, row := range src.Grid {
			for _, c := range row {
				if c.Number != nil || c.Time != nil {
					continue
				}
				if m := reReference.FindString(c.Text); m != "" {
					return OK(m)
				}
			}
		}
		return NotFound()
	}
	if m := reTextDocNumber.FindStringSubmatch(src.Text); m != nil {
		return OK(m[1])
	}
	if m := reReference.FindString(src.Text); m != "" {
		return OK(m)
	}
	return NotFound()
}

// Locality returns the hinted locality when the caller already resolved one.
func Locality(src Source, h Hint) Result {
	if h.Locality != "" {
		return OK(h.Locality)
	}
	if src.IsGrid() {
		return OK(FilenameLocality(src.Name))
	}
	return TextLocality(src.Text)
}

func TextLocality(text string) Result {
	if m := reTextLocality.FindStringSubmatch(text); m != nil {
		return OK(m[1])
	}
	return NotFound()
}

// FilenameLocality never fails; unmatched names yield UnknownLocality.
func FilenameLocality(name string) string {
	if m := reFileDelicatessen.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	if m := reFileWeeklySales.FindStringSubmatch(name); m != nil {
		return m[1]
	}
	return UnknownLocality
}

func Description(src Source, h Hint) Result {
	if src.IsGrid() {
		return gridDescription(src.Grid, h)
	}
	m := reInvoiceWeek.FindStringSubmatch(src.Text)
	if m == nil {
		return NotFound()
	}
	week, period := m[1], strings.TrimSpace(m[2])
	pair := reDatePair.FindStringSubmatch(period)
	if pair == nil {
		return OK(fmt.Sprintf("Week %s - %s", week, period))
	}
	start, err := dottedDate(pair[1])
	if err != nil {
		return ParseError(err)
	}
	end, err := dottedDate(pair[2])
	if err != nil {
		return ParseError(err)
	}
	if loc := h.displayLocality(); loc != "" {
		return OK(fmt.Sprintf("Chain Supermarket %s - Wk%s (%s-%s)", loc, week, start, end))
	}
	return OK(fmt.Sprintf("Chain Supermarket - Wk%s (%s-%s)", week, start, end))
}

func gridDescription(g Grid, h Hint) Result {
	week := ""
	for r := range g {
		text := g.At(r, 0).Text
		if !strings.Contains(text, commissionLabel) {
			continue
		}
		if m := reRowWeek.FindStringSubmatch(text); m != nil {
			week = m[1]
		}
		break
	}
	if week == "" {
		return NotFound()
	}
	loc := h.displayLocality()
	if h.Category == internal.CategorySales {
		return OK(fmt.Sprintf("Chain Supermarket %s - Wk%s (period)", loc, week))
	}
	return OK(fmt.Sprintf("Chain Supermarket %s - Rent for Week %s %s", loc, week, rentYear))
}

// dottedDate turns d/m/yy into dd.mm.yy, leaving the year as written.
func dottedDate(s string) (string, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("date %q: want d/m/y", s)
	}
	return util.ZeroPad(parts[0], 2) + "." + util.ZeroPad(parts[1], 2) + "." + parts[2], nil
}

func Net(src Source, _ Hint) Result {
	if !src.IsGrid() {
		return NotFound()
	}
	return labelledAmount(src.Grid, commissionLabel)
}

func VAT(src Source, _ Hint) Result {
	if !src.IsGrid() {
		return NotFound()
	}
	return labelledAmount(src.Grid, vatLabel)
}

func Total(src Source, h Hint) Result {
	if !src.IsGrid() {
		if m := reTextTotal.FindStringSubmatch(src.Text); m != nil {
			return OK(m[1])
		}
		return NotFound()
	}
	net, vat := Net(src, h), VAT(src, h)
	if !net.Found() || !vat.Found() {
		return NotFound()
	}
	a, err := decimal.NewFromString(net.Value)
	if err != nil {
		return ParseError(err)
	}
	b, err := decimal.NewFromString(vat.Value)
	if err != nil {
		return ParseError(err)
	}
	return OK(util.FormatAmount(a.Add(b)))
}

// labelledAmount reads the amount column of the first row whose label
// matches and has a value there.
func labelledAmount(g Grid, label string) Result {
	for r := range g {
		if !strings.Contains(g.At(r, 0).Text, label) {
			continue
		}
		c := g.At(r, amountColumn)
		if c.Empty() {
			continue
		}
		if c.Number != nil && c.Time == nil {
			return OK(util.FormatAmount(decimal.NewFromFloat(*c.Number)))
		}
		d, err := util.ParseAmount(c.Text)
		if err != nil {
			return ParseError(err)
		}
		return OK(util.FormatAmount(d))
	}
	return NotFound()
}

package ledger

import (
	"strings"
	"time"

	"ledgerflow/internal"
	"ledgerflow/internal/templates"
	"ledgerflow/internal/util"
)

// Tried in order; the first layout that parses wins.
var uploadDateLayouts = []string{
	"2/1/06",
	"2/1/2006",
	"2-1-06",
	"2-1-2006",
	"2006-1-2",
	"1/2/06",
	"1/2/2006",
}

// ReformatDate renders a ledger date as dd/mm/yyyy. Unrecognised input is
// returned unchanged.
func ReformatDate(date string) string {
	s := strings.TrimSpace(date)
	if s == "" {
		return ""
	}
	for _, layout := range uploadDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		// time maps yy 69-99 to the 1900s; ledger years are 2000+.
		if !strings.Contains(layout, "2006") && t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		return t.Format("02/01/2006")
	}
	return date
}

type uploadField func(row internal.LedgerRecord) string

var uploadFields = map[templates.Directive]uploadField{
	templates.CopySupplierCode:   func(r internal.LedgerRecord) string { return r.SupplierCode },
	templates.CopyNC:             func(r internal.LedgerRecord) string { return r.NC },
	templates.ExtractDate:        func(r internal.LedgerRecord) string { return ReformatDate(r.DocumentDate) },
	templates.ExtractReference:   func(r internal.LedgerRecord) string { return r.DocumentNumber },
	templates.ExtractDescription: func(r internal.LedgerRecord) string { return r.Description },
	templates.ExtractNet:         uploadNet,
	templates.ExtractVAT:         uploadVAT,
}

func uploadNet(r internal.LedgerRecord) string {
	if r.DataType == internal.DataTypeSales {
		return util.FormatPositive(util.AmountOrZero(r.Total))
	}
	return r.Net
}

func uploadVAT(r internal.LedgerRecord) string {
	if r.DataType == internal.DataTypeSales {
		return zeroVAT
	}
	return r.VAT
}

// Project maps ledger rows into the upload layout. Columns follow the
// template's key order.
func Project(rows []internal.LedgerRecord, tmpl templates.Template) ([]string, []internal.Record) {
	variant := tmpl.First()
	if variant == nil {
		variant = templates.DefaultUpload().First()
	}
	out := make([]internal.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(internal.Record, 0, len(variant))
		for _, f := range variant {
			if !f.IsDirective() {
				rec.Set(f.Name, f.Literal)
				continue
			}
			fn, ok := uploadFields[f.Directive]
			if !ok {
				rec.Set(f.Name, string(f.Directive))
				continue
			}
			rec.Set(f.Name, fn(row))
		}
		out = append(out, rec)
	}
	return variant.Keys(), out
}

package ledger

import (
	"regexp"
	"sort"
	"strings"

	"ledgerflow/internal"
	"ledgerflow/internal/util"
)

const (
	zeroVAT     = "0.00"
	unsortedKey = "9999-12-31"
)

var (
	reDigits  = regexp.MustCompile(`^\d+$`)
	reISOLike = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Merge combines sales and purchase records into one ledger ordered by date.
// Sales carry no VAT and book the statement total as Net; purchases add VAT
// on top of Net.
func Merge(sales, purchases []internal.Record) []internal.LedgerRecord {
	out := make([]internal.LedgerRecord, 0, len(sales)+len(purchases))
	for _, rec := range sales {
		out = append(out, SalesRow(rec))
	}
	for _, rec := range purchases {
		out = append(out, ExpenseRow(rec))
	}
	Sort(out)
	return out
}

func SalesRow(rec internal.Record) internal.LedgerRecord {
	row := base(rec, internal.DataTypeSales)
	total := util.FormatPositive(util.AmountOrZero(rec.Get(internal.FieldTotal)))
	row.Net = total
	row.VAT = zeroVAT
	row.Total = total
	return row
}

func ExpenseRow(rec internal.Record) internal.LedgerRecord {
	row := base(rec, internal.DataTypeExpenses)
	net := util.AmountOrZero(rec.Get(internal.FieldNet))
	vat := util.AmountOrZero(rec.Get(internal.FieldVAT))
	row.Net = util.FormatPositive(net)
	row.VAT = util.FormatAmount(vat)
	row.Total = util.FormatPositive(net.Add(vat))
	return row
}

func base(rec internal.Record, dt internal.DataType) internal.LedgerRecord {
	empty := rec.Get(internal.FieldEmptyColumn)
	if !rec.Has(internal.FieldEmptyColumn) {
		empty = rec.Get("Empty Column")
	}
	return internal.LedgerRecord{
		DataType:       dt,
		DocumentType:   rec.Get(internal.FieldDocumentType),
		DocumentDate:   rec.Get(internal.FieldDocumentDate),
		SupplierCode:   rec.Get(internal.FieldSupplierCode),
		EmptyColumn:    empty,
		DocumentNumber: rec.Get(internal.FieldDocumentNumber),
		Description:    rec.Get(internal.FieldDescription),
		NC:             rec.Get(internal.FieldNC),
		VC:             rec.Get(internal.FieldVC),
		Locality:       rec.Get(internal.FieldLocality),
	}
}

// Sort orders rows by SortKey, then by Data Type. Equal rows keep their
// input order.
func Sort(rows []internal.LedgerRecord) {
	type keyed struct {
		key string
		row internal.LedgerRecord
	}
	tmp := make([]keyed, len(rows))
	for i, r := range rows {
		tmp[i] = keyed{key: SortKey(r.DocumentDate), row: r}
	}
	sort.SliceStable(tmp, func(a, b int) bool {
		if tmp[a].key != tmp[b].key {
			return tmp[a].key < tmp[b].key
		}
		return tmp[a].row.DataType < tmp[b].row.DataType
	})
	for i := range tmp {
		rows[i] = tmp[i].row
	}
}

// SortKey maps d/m/yy and d/m/yyyy (slash or dash separated) to yyyy-mm-dd,
// assuming 20xx for two digit years. ISO dates pass through. Anything else
// sorts last.
func SortKey(date string) string {
	s := strings.TrimSpace(date)
	if reISOLike.MatchString(s) {
		return s
	}
	sep := "/"
	if !strings.Contains(s, sep) {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return unsortedKey
	}
	day, month, year := parts[0], parts[1], parts[2]
	for _, p := range parts {
		if !reDigits.MatchString(p) || len(p) > 4 {
			return unsortedKey
		}
	}
	if len(day) > 2 || len(month) > 2 {
		return unsortedKey
	}
	if len(year) == 2 {
		year = "20" + year
	}
	if len(year) != 4 {
		return unsortedKey
	}
	return year + "-" + util.ZeroPad(month, 2) + "-" + util.ZeroPad(day, 2)
}

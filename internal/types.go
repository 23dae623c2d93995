package internal

type Category string

const (
	CategorySales     Category = "sales"
	CategoryPurchases Category = "purchases"
)

type SourceKind string

const (
	SourcePDF  SourceKind = "pdf"
	SourceXLSX SourceKind = "xlsx"
	SourceEML  SourceKind = "eml"
)

type DataType string

const (
	DataTypeSales    DataType = "Sales"
	DataTypeExpenses DataType = "Expenses"
)

// Field names shared by the field templates and the ledger.
const (
	FieldDataType       = "Data Type"
	FieldDocumentType   = "Document Type"
	FieldDocumentDate   = "Document Date"
	FieldSupplierCode   = "Supplier Code"
	FieldEmptyColumn    = "Empty_Column"
	FieldDocumentNumber = "Document Number"
	FieldDescription    = "Description"
	FieldNC             = "NC"
	FieldVC             = "VC"
	FieldLocality       = "Locality"
	FieldNet            = "Net"
	FieldVAT            = "VAT"
	FieldTotal          = "Total"
)

var LedgerColumns = []string{
	FieldDataType, FieldDocumentType, FieldDocumentDate, FieldSupplierCode, FieldEmptyColumn,
	FieldDocumentNumber, FieldDescription, FieldNC, FieldVC, FieldLocality,
	FieldNet, FieldVAT, FieldTotal,
}

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is an ordered field-name to value mapping. Order follows the
// template that produced it.
type Record []Field

func (r Record) Get(name string) string {
	for _, f := range r {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func (r Record) Has(name string) bool {
	for _, f := range r {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (r *Record) Set(name, value string) {
	for i := range *r {
		if (*r)[i].Name == name {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Name: name, Value: value})
}

func (r Record) Keys() []string {
	out := make([]string, 0, len(r))
	for _, f := range r {
		out = append(out, f.Name)
	}
	return out
}

func (r Record) Values() []string {
	out := make([]string, 0, len(r))
	for _, f := range r {
		out = append(out, f.Value)
	}
	return out
}

func (r Record) Blank() bool {
	for _, f := range r {
		if f.Value != "" {
			return false
		}
	}
	return true
}

type LedgerRecord struct {
	DataType       DataType `csv:"Data Type"`
	DocumentType   string   `csv:"Document Type"`
	DocumentDate   string   `csv:"Document Date"`
	SupplierCode   string   `csv:"Supplier Code"`
	EmptyColumn    string   `csv:"Empty_Column"`
	DocumentNumber string   `csv:"Document Number"`
	Description    string   `csv:"Description"`
	NC             string   `csv:"NC"`
	VC             string   `csv:"VC"`
	Locality       string   `csv:"Locality"`
	Net            string   `csv:"Net"`
	VAT            string   `csv:"VAT"`
	Total          string   `csv:"Total"`
}

// Values returns the row in LedgerColumns order.
func (l LedgerRecord) Values() []string {
	return []string{
		string(l.DataType), l.DocumentType, l.DocumentDate, l.SupplierCode, l.EmptyColumn,
		l.DocumentNumber, l.Description, l.NC, l.VC, l.Locality,
		l.Net, l.VAT, l.Total,
	}
}

type DocumentResult struct {
	Path     string
	Name     string
	Category Category
	Kind     SourceKind
	Hash     string
	Locality string
	Record   Record
	Err      error
}

type RunSummary struct {
	ID         string
	StartedAt  string
	FinishedAt string
	Documents  int
	Failed     int
	Sales      int
	Purchases  int
}

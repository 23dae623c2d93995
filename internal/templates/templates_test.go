package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerflow/internal"
)

const salesJSON = `[
  {"Document Type": "", "Document Date": "extract_date", "Supplier Code": "CHAINFGU", "NC": "4002", "Total": "extract_total"},
  {"Document Type": "", "Document Date": "extract_date", "Supplier Code": "CHAINTAR", "NC": "4001", "Total": "extract_total", "Note": "extract_magic"}
]`

func TestParseJSONKeepsOrder(t *testing.T) {
	tmpl, err := Parse(strings.NewReader(salesJSON), FormatJSON, FieldDirectives)
	require.NoError(t, err)
	require.Len(t, tmpl.Variants, 2)

	assert.Equal(t, []string{"Document Type", "Document Date", "Supplier Code", "NC", "Total"}, tmpl.Variants[0].Keys())
	assert.Equal(t, "CHAINFGU", tmpl.Variants[0].SupplierCode())

	date, ok := tmpl.Variants[0].Lookup("Document Date")
	require.True(t, ok)
	assert.Equal(t, ExtractDate, date.Directive)

	note, ok := tmpl.Variants[1].Lookup("Note")
	require.True(t, ok)
	assert.False(t, note.IsDirective())
	assert.Equal(t, "extract_magic", note.Literal)
}

func TestParseJSONScalarsAndSingleObject(t *testing.T) {
	tmpl, err := Parse(strings.NewReader(`{"NC": 4002, "Flag": true, "Empty": null}`), FormatJSON, FieldDirectives)
	require.NoError(t, err)
	require.Len(t, tmpl.Variants, 1)
	v := tmpl.First()
	assert.Equal(t, []string{"NC", "Flag", "Empty"}, v.Keys())
	nc, _ := v.Lookup("NC")
	assert.Equal(t, "4002", nc.Literal)
	flag, _ := v.Lookup("Flag")
	assert.Equal(t, "true", flag.Literal)
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"truncated": `[{"NC": "4002"`,
		"nested":    `[{"NC": {"a": 1}}]`,
		"scalar":    `"hello"`,
		"empty":     `[]`,
		"not obj":   `["x"]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(body), FormatJSON, FieldDirectives)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseYAML(t *testing.T) {
	body := `
- Type: ""
  Account Reference: supplier_code
  Nominal A/C Ref: NC_extract
  Date: extract_date
  Tax Code: T0
  Tax Amount: extract_vat
  Memo: ~
`
	tmpl, err := Parse(strings.NewReader(body), FormatYAML, UploadDirectives)
	require.NoError(t, err)
	v := tmpl.First()
	assert.Equal(t, []string{"Type", "Account Reference", "Nominal A/C Ref", "Date", "Tax Code", "Tax Amount", "Memo"}, v.Keys())
	acc, _ := v.Lookup("Account Reference")
	assert.Equal(t, CopySupplierCode, acc.Directive)
	memo, _ := v.Lookup("Memo")
	assert.Equal(t, "", memo.Literal)

	_, err = Parse(strings.NewReader("- [1, 2]\n"), FormatYAML, UploadDirectives)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVocabularyIsPerTemplateKind(t *testing.T) {
	tmpl, err := Parse(strings.NewReader(`[{"A": "supplier_code", "B": "extract_total"}]`), FormatJSON, UploadDirectives)
	require.NoError(t, err)
	a, _ := tmpl.First().Lookup("A")
	b, _ := tmpl.First().Lookup("B")
	assert.True(t, a.IsDirective())
	assert.False(t, b.IsDirective())
	assert.Equal(t, "extract_total", b.Literal)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	tmpl, defaulted, err := Load(filepath.Join(dir, "missing.json"), FieldDirectives, DefaultSales())
	require.NoError(t, err)
	assert.True(t, defaulted)
	assert.Equal(t, NameSales, tmpl.Name)
	assert.Equal(t, "CHAINFGU", tmpl.First().SupplierCode())

	good := filepath.Join(dir, "sales.json")
	require.NoError(t, os.WriteFile(good, []byte(salesJSON), 0o644))
	tmpl, defaulted, err = Load(good, FieldDirectives, DefaultSales())
	require.NoError(t, err)
	assert.False(t, defaulted)
	assert.Len(t, tmpl.Variants, 2)
	assert.Equal(t, NameSales, tmpl.Name)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("a: [unterminated"), 0o644))
	_, _, err = Load(bad, FieldDirectives, DefaultSales())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVariantHelpers(t *testing.T) {
	tmpl := DefaultPurchases()
	v := tmpl.First()

	_, ok := tmpl.Match("CHAINTAR")
	assert.False(t, ok)
	m, ok := tmpl.Match("CHAINFGU")
	require.True(t, ok)
	assert.Equal(t, v.Keys(), m.Keys())

	moved := v.WithLiteral(internal.FieldSupplierCode, "CHAINZAB")
	assert.Equal(t, "CHAINZAB", moved.SupplierCode())
	assert.Equal(t, "CHAINFGU", v.SupplierCode())
	assert.Equal(t, v.Keys(), moved.Keys())

	same := v.WithLiteral("Absent", "x")
	assert.Equal(t, v.Keys(), same.Keys())
}

func TestDefaults(t *testing.T) {
	assert.Equal(t, []string{
		"Document Type", "Document Date", "Supplier Code", "Empty_Column", "Document Number",
		"Description", "NC", "VC", "Locality", "Total",
	}, Default(internal.CategorySales).First().Keys())
	assert.Equal(t, []string{
		"Document Type", "Document Date", "Supplier Code", "Document Number",
		"Description", "NC", "VC", "Net", "VAT",
	}, Default(internal.CategoryPurchases).First().Keys())
	assert.Len(t, DefaultUpload().First(), 10)
}

func TestShippedTemplates(t *testing.T) {
	for _, tc := range []struct {
		file     string
		fallback Template
	}{
		{"JSON_Template_Sales.json", DefaultSales()},
		{"JSON_Template_Purchases.json", DefaultPurchases()},
	} {
		t.Run(tc.file, func(t *testing.T) {
			tmpl, defaulted, err := Load(filepath.Join("..", "..", "templates", tc.file), FieldDirectives, tc.fallback)
			require.NoError(t, err)
			assert.False(t, defaulted)
			require.Len(t, tmpl.Variants, 3)
			for _, code := range []string{"CHAINFGU", "CHAINTAR", "CHAINZAB"} {
				_, ok := tmpl.Match(code)
				assert.True(t, ok, code)
			}
			assert.Equal(t, tc.fallback.First().Keys(), tmpl.First().Keys())
		})
	}
}

func TestShippedUploadTemplate(t *testing.T) {
	tmpl, defaulted, err := Load(filepath.Join("..", "..", "templates", "JSON_Template_Upload.json"), UploadDirectives, DefaultUpload())
	require.NoError(t, err)
	assert.False(t, defaulted)
	require.Len(t, tmpl.Variants, 1)
	assert.Equal(t, DefaultUpload().First(), tmpl.First())
}

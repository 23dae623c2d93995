package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerflow/internal"
	"ledgerflow/internal/config"
	"ledgerflow/internal/storage"
)

const salesTemplateJSON = `[
  {
    "Document Type": "",
    "Document Date": "extract_date",
    "Supplier Code": "CHAINZAB",
    "Empty_Column": "",
    "Document Number": "extract_reference",
    "Description": "extract_description",
    "NC": "4003",
    "VC": "T0",
    "Locality": "extract_locality",
    "Total": "extract_total"
  }
]`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	root := t.TempDir()
	return config.Config{
		DBPath:                filepath.Join(root, "data", "ledgerflow.db"),
		SalesInputDir:         filepath.Join(root, "input", "sales"),
		PurchasesInputDir:     filepath.Join(root, "input", "purchases"),
		OutputDir:             filepath.Join(root, "output"),
		RenamedDir:            filepath.Join(root, "output", "Renamed Invoices"),
		SalesTemplatePath:     filepath.Join(root, "templates", "JSON_Template_Sales.json"),
		PurchasesTemplatePath: filepath.Join(root, "templates", "JSON_Template_Purchases.json"),
		UploadTemplatePath:    filepath.Join(root, "templates", "JSON_Template_Upload.json"),
		WatchIntervalSec:      1,
	}
}

func newTestService(t *testing.T, cfg config.Config) (*Service, *storage.DB) {
	t.Helper()
	db, err := storage.Open(cfg.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc, err := NewService(cfg, db, zerolog.Nop())
	require.NoError(t, err)
	return svc, db
}

func TestServiceRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.ExportXLSX = true
	writeTestFile(t, cfg.SalesTemplatePath, []byte(salesTemplateJSON))
	writeTestFile(t, filepath.Join(cfg.SalesInputDir, "delicatessen Zabbar wk7.xlsx"),
		rentStatement(t, time.Date(2025, 2, 16, 0, 0, 0, 0, time.UTC), "7", 1000, 180))
	writeTestFile(t, filepath.Join(cfg.PurchasesInputDir, "delicatessen Fgura wk19.xlsx"),
		rentStatement(t, time.Date(2025, 5, 11, 0, 0, 0, 0, time.UTC), "19", 150.5, 27.09))
	writeTestFile(t, filepath.Join(cfg.PurchasesInputDir, "broken.pdf"), []byte("not a pdf"))

	svc, db := newTestService(t, cfg)
	report, combined, err := svc.Run()
	require.NoError(t, err)

	assert.Len(t, report.Documents, 3)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Sales, 1)
	require.Len(t, report.Purchases, 1)
	assert.Equal(t, "CHAINZAB", report.Sales[0].Get(internal.FieldSupplierCode))
	assert.Equal(t, "1180.00", report.Sales[0].Get(internal.FieldTotal))

	require.Len(t, combined.Ledger, 2)
	assert.Equal(t, internal.DataTypeSales, combined.Ledger[0].DataType)
	assert.Equal(t, "16/02/25", combined.Ledger[0].DocumentDate)
	assert.Equal(t, "1180.00", combined.Ledger[0].Net)
	assert.Equal(t, internal.DataTypeExpenses, combined.Ledger[1].DataType)
	assert.Equal(t, "177.59", combined.Ledger[1].Total)

	require.Len(t, combined.Upload, 2)
	assert.Equal(t, "16/02/2025", combined.Upload[0].Get("Date"))
	assert.Equal(t, "CHAINZAB", combined.Upload[0].Get("Account Reference"))
	assert.Equal(t, "0.00", combined.Upload[0].Get("Tax Amount"))

	for _, p := range []string{
		cfg.SalesCSV(), cfg.PurchasesCSV(), cfg.LedgerCSV(), cfg.UploadCSV(),
		xlsxPath(cfg.LedgerCSV()), xlsxPath(cfg.UploadCSV()),
	} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}

	sales, err := ReadRecordsCSV(cfg.SalesCSV())
	require.NoError(t, err)
	assert.Equal(t, report.Sales, sales)

	runs, err := db.ListRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, 3, runs[0].Documents)
	assert.Equal(t, 1, runs[0].Failed)

	docs, err := db.ListDocuments(report.RunID)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, storage.StatusFailed, docs[1].Status)

	again, err := svc.CombineRun(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, combined.Ledger, again.Ledger)
	assert.Equal(t, combined.Upload, again.Upload)

	_, err = svc.CombineRun("no-such-run")
	assert.Error(t, err)
}

func TestServiceEmptyInputsWriteHeaders(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newTestService(t, cfg)

	report, combined, err := svc.Run()
	require.NoError(t, err)
	assert.Empty(t, report.Documents)
	assert.Empty(t, combined.Ledger)

	records, err := ReadRecordsCSV(cfg.LedgerCSV())
	require.NoError(t, err)
	assert.Empty(t, records)

	blob, err := os.ReadFile(cfg.UploadCSV())
	require.NoError(t, err)
	assert.Equal(t, "Type,Account Reference,Nominal A/C Ref,Department Code,Date,Reference,Details,Net Amount,Tax Code,Tax Amount\n", string(blob))
}

func TestCombineFromFiles(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newTestService(t, cfg)

	purchases := []internal.Record{{
		{Name: internal.FieldDocumentDate, Value: "11/05/25"},
		{Name: internal.FieldSupplierCode, Value: "CHAINFGU"},
		{Name: internal.FieldNet, Value: "150.50"},
		{Name: internal.FieldVAT, Value: "27.09"},
	}}
	keys := purchases[0].Keys()
	require.NoError(t, WriteTableCSV(RecordsTable(keys, purchases), cfg.PurchasesCSV()))

	combined, err := svc.CombineFromFiles(cfg.SalesCSV(), cfg.PurchasesCSV())
	require.NoError(t, err)
	require.Len(t, combined.Ledger, 1)
	assert.Equal(t, "177.59", combined.Ledger[0].Total)
	assert.Equal(t, "150.50", combined.Upload[0].Get("Net Amount"))
}

func TestNewServiceRejectsMalformedTemplate(t *testing.T) {
	cfg := testConfig(t)
	writeTestFile(t, cfg.PurchasesTemplatePath, []byte(`{"Net": `))

	_, err := NewService(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestRenameSales(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newTestService(t, cfg)
	svc.reader = stubReader{
		"Weekly Sales - Zabbar Wk07.pdf": {Kind: internal.SourcePDF, Text: "Invoice for week 9 March 1/3/25 7/3/25"},
		"scan.pdf":                       {Kind: internal.SourcePDF, Text: "nothing useful"},
	}

	src := filepath.Join(cfg.SalesInputDir, "Weekly Sales - Zabbar Wk07.pdf")
	writeTestFile(t, src, []byte("%PDF-1.4 zabbar"))
	writeTestFile(t, filepath.Join(cfg.SalesInputDir, "scan.pdf"), []byte("%PDF-1.4 scan"))
	docs, err := svc.Discover()
	require.NoError(t, err)

	results, err := svc.RenameSales(docs, cfg.RenamedDir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	renamed := results[0]
	assert.Equal(t, "Weekly Sales - Zabbar Wk09.pdf", renamed.Rename.Canonical)
	assert.NotEmpty(t, renamed.Rename.Mismatch)
	blob, err := os.ReadFile(filepath.Join(cfg.RenamedDir, "Weekly Sales - Zabbar Wk09.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 zabbar", string(blob))
	_, err = os.Stat(src)
	assert.NoError(t, err)

	assert.False(t, results[1].Rename.Resolved())
	assert.Empty(t, results[1].Target)
}

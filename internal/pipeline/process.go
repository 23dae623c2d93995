package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ledgerflow/internal"
	"ledgerflow/internal/config"
	"ledgerflow/internal/ledger"
	"ledgerflow/internal/reference"
	"ledgerflow/internal/storage"
	"ledgerflow/internal/templates"
)

type Service struct {
	cfg      config.Config
	db       *storage.DB
	ref      *reference.Table
	resolver *Resolver
	builder  *Builder
	reader   Reader
	upload   templates.Template
	log      zerolog.Logger
}

// NewService loads the templates. db may be nil, in which case runs are not
// recorded.
func NewService(cfg config.Config, db *storage.DB, log zerolog.Logger) (*Service, error) {
	sales, err := loadTemplate(cfg.SalesTemplatePath, templates.FieldDirectives, templates.DefaultSales(), log)
	if err != nil {
		return nil, err
	}
	purchases, err := loadTemplate(cfg.PurchasesTemplatePath, templates.FieldDirectives, templates.DefaultPurchases(), log)
	if err != nil {
		return nil, err
	}
	upload, err := loadTemplate(cfg.UploadTemplatePath, templates.UploadDirectives, templates.DefaultUpload(), log)
	if err != nil {
		return nil, err
	}

	ref := reference.Default()
	resolver := NewResolver(ref, sales, purchases, log)
	reader := FileReader{}
	return &Service{
		cfg:      cfg,
		db:       db,
		ref:      ref,
		resolver: resolver,
		builder:  NewBuilder(resolver, reader, log),
		reader:   reader,
		upload:   upload,
		log:      log,
	}, nil
}

func loadTemplate(path string, vocab templates.Vocabulary, fallback templates.Template, log zerolog.Logger) (templates.Template, error) {
	t, defaulted, err := templates.Load(path, vocab, fallback)
	if err != nil {
		return templates.Template{}, err
	}
	if defaulted {
		log.Warn().Str("template", fallback.Name).Str("path", path).Msg("template file not found, using built-in default")
	}
	return t, nil
}

// Discover lists sales documents followed by purchase documents.
func (s *Service) Discover() ([]Document, error) {
	sales, err := Discover(s.cfg.SalesInputDir, internal.CategorySales)
	if err != nil {
		return nil, fmt.Errorf("discover sales: %w", err)
	}
	purchases, err := Discover(s.cfg.PurchasesInputDir, internal.CategoryPurchases)
	if err != nil {
		return nil, fmt.Errorf("discover purchases: %w", err)
	}
	return append(sales, purchases...), nil
}

type ExtractReport struct {
	RunID     string
	Documents []internal.DocumentResult
	Sales     []internal.Record
	Purchases []internal.Record
	Failed    int
}

func (r ExtractReport) Counts() map[string]int {
	return map[string]int{
		"documents": len(r.Documents),
		"failed":    r.Failed,
		"sales":     len(r.Sales),
		"purchases": len(r.Purchases),
	}
}

// Extract builds one record per document, strictly one document at a time.
// Unreadable documents are counted and skipped. The returned error only
// reports run registry failures; the report is complete either way.
func (s *Service) Extract(docs []Document) (ExtractReport, error) {
	report := ExtractReport{RunID: uuid.NewString()}
	log := s.log.With().Str("run", report.RunID).Logger()

	var errs []error
	if s.db != nil {
		if err := s.db.BeginRun(report.RunID, time.Now()); err != nil {
			errs = append(errs, fmt.Errorf("record run: %w", err))
		}
	}

	for _, doc := range docs {
		res := s.builder.Build(doc)
		report.Documents = append(report.Documents, res)
		if s.db != nil && len(errs) == 0 {
			if _, err := s.db.SaveDocument(report.RunID, res); err != nil {
				errs = append(errs, fmt.Errorf("record %s: %w", res.Path, err))
			}
		}
		if res.Err != nil {
			report.Failed++
			continue
		}
		switch res.Category {
		case internal.CategorySales:
			report.Sales = append(report.Sales, res.Record)
		case internal.CategoryPurchases:
			report.Purchases = append(report.Purchases, res.Record)
		}
	}

	if s.db != nil && len(errs) == 0 {
		if err := s.db.FinishRun(report.RunID, time.Now(), report.Counts()); err != nil {
			errs = append(errs, fmt.Errorf("record run: %w", err))
		}
	}
	log.Info().Int("documents", len(report.Documents)).Int("failed", report.Failed).
		Int("sales", len(report.Sales)).Int("purchases", len(report.Purchases)).Msg("extraction finished")
	return report, errors.Join(errs...)
}

// WriteCategories writes sales_data.csv and purchases_data.csv. Each file is
// attempted even if the other fails.
func (s *Service) WriteCategories(report ExtractReport) error {
	var errs []error
	for _, c := range []struct {
		category internal.Category
		records  []internal.Record
		path     string
	}{
		{internal.CategorySales, report.Sales, s.cfg.SalesCSV()},
		{internal.CategoryPurchases, report.Purchases, s.cfg.PurchasesCSV()},
	} {
		table := RecordsTable(UnionKeys(s.resolver.Keys(c.category), c.records), c.records)
		if err := s.writeTable(table, string(c.category), c.path); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type CombineReport struct {
	Ledger       []internal.LedgerRecord
	UploadHeader []string
	Upload       []internal.Record
}

// Combine merges both categories into the ledger and the upload table and
// writes both.
func (s *Service) Combine(sales, purchases []internal.Record) (CombineReport, error) {
	rows := ledger.Merge(sales, purchases)
	header, upload := ledger.Project(rows, s.upload)
	report := CombineReport{Ledger: rows, UploadHeader: header, Upload: upload}

	var errs []error
	if err := WriteLedgerCSV(rows, s.cfg.LedgerCSV()); err != nil {
		errs = append(errs, fmt.Errorf("write ledger: %w", err))
	} else {
		s.log.Info().Str("path", s.cfg.LedgerCSV()).Int("rows", len(rows)).Msg("ledger written")
	}
	if s.cfg.ExportXLSX {
		if err := WriteTableXLSX(LedgerTable(rows), "Ledger", xlsxPath(s.cfg.LedgerCSV())); err != nil {
			errs = append(errs, fmt.Errorf("write ledger xlsx: %w", err))
		}
	}
	if err := s.writeTable(RecordsTable(header, upload), "upload", s.cfg.UploadCSV()); err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

// CombineFromFiles reruns the merge from previously written category files.
// A missing file counts as an empty category.
func (s *Service) CombineFromFiles(salesPath, purchasesPath string) (CombineReport, error) {
	sales, err := s.readCategory(salesPath)
	if err != nil {
		return CombineReport{}, err
	}
	purchases, err := s.readCategory(purchasesPath)
	if err != nil {
		return CombineReport{}, err
	}
	return s.Combine(sales, purchases)
}

// CombineRun reruns the merge from the records stored for an earlier run.
func (s *Service) CombineRun(runID string) (CombineReport, error) {
	if s.db == nil {
		return CombineReport{}, errors.New("combine run: no run registry")
	}
	sales, err := s.db.ListRecords(runID, internal.CategorySales)
	if err != nil {
		return CombineReport{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	purchases, err := s.db.ListRecords(runID, internal.CategoryPurchases)
	if err != nil {
		return CombineReport{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	if len(sales)+len(purchases) == 0 {
		return CombineReport{}, fmt.Errorf("run %s has no extracted records", runID)
	}
	return s.Combine(sales, purchases)
}

func (s *Service) readCategory(path string) ([]internal.Record, error) {
	records, err := ReadRecordsCSV(path)
	if errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Str("path", path).Msg("category file not found, treating as empty")
		return nil, nil
	}
	return records, err
}

// Run is extract followed by combine over everything in the input folders.
func (s *Service) Run() (ExtractReport, CombineReport, error) {
	docs, err := s.Discover()
	if err != nil {
		return ExtractReport{}, CombineReport{}, err
	}
	return s.Process(docs)
}

func (s *Service) Process(docs []Document) (ExtractReport, CombineReport, error) {
	report, registryErr := s.Extract(docs)
	categoriesErr := s.WriteCategories(report)
	combined, combineErr := s.Combine(report.Sales, report.Purchases)
	return report, combined, errors.Join(registryErr, categoriesErr, combineErr)
}

func (s *Service) writeTable(t Table, name, path string) error {
	var errs []error
	if err := WriteTableCSV(t, path); err != nil {
		errs = append(errs, fmt.Errorf("write %s: %w", name, err))
	} else {
		s.log.Info().Str("path", path).Int("rows", len(t.Rows)).Msg(name + " table written")
	}
	if s.cfg.ExportXLSX {
		if err := WriteTableXLSX(t, name, xlsxPath(path)); err != nil {
			errs = append(errs, fmt.Errorf("write %s xlsx: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func xlsxPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".xlsx"
}

type RenameResult struct {
	Document Document
	Rename   Rename
	Target   string
	Err      error
}

// RenameSales copies every sales PDF into dir under its canonical name.
// Originals are left untouched; documents whose locality or week cannot be
// determined are reported and skipped.
func (s *Service) RenameSales(docs []Document, dir string) ([]RenameResult, error) {
	var (
		out  []RenameResult
		errs []error
	)
	targets := map[string]string{}
	for _, doc := range docs {
		if doc.Category != internal.CategorySales || doc.Kind != internal.SourcePDF {
			continue
		}
		res := RenameResult{Document: doc}
		src, err := s.reader.Read(doc)
		if err != nil {
			res.Err = err
			s.log.Warn().Err(err).Str("document", doc.Label()).Msg("cannot read document for renaming")
			out = append(out, res)
			continue
		}
		res.Rename = ReconcileName(doc.Name, src.Text, s.ref)
		if res.Rename.Mismatch != "" {
			s.log.Warn().Str("document", doc.Label()).Msg(res.Rename.Mismatch)
		}
		if !res.Rename.Resolved() {
			s.log.Warn().Str("document", doc.Label()).Str("locality", res.Rename.Locality).
				Str("week", res.Rename.Week).Msg("cannot determine canonical name")
			out = append(out, res)
			continue
		}

		res.Target = filepath.Join(dir, res.Rename.Canonical)
		if prev, dup := targets[res.Target]; dup {
			s.log.Warn().Str("document", doc.Label()).Str("previous", prev).Str("target", res.Target).Msg("canonical name already used, overwriting")
		}
		targets[res.Target] = doc.Label()

		if err := s.copyDocument(doc, res.Target); err != nil {
			res.Err = err
			errs = append(errs, fmt.Errorf("copy %s: %w", doc.Label(), err))
		}
		out = append(out, res)
	}
	return out, errors.Join(errs...)
}

func (s *Service) copyDocument(doc Document, target string) error {
	if doc.Attachment == "" {
		return CopyFile(doc.Path, target)
	}
	content, err := documentContent(doc)
	if err != nil {
		return err
	}
	return writeFile(target, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
}

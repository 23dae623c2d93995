package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"ledgerflow/internal"
)

// Table is a header plus rows in header order.
type Table struct {
	Header []string
	Rows   [][]string
}

// RecordsTable lays records out under keys; fields a record lacks are empty.
func RecordsTable(keys []string, records []internal.Record) Table {
	t := Table{Header: keys, Rows: make([][]string, 0, len(records))}
	for _, rec := range records {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = rec.Get(k)
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// UnionKeys returns base followed by any other keys in first-seen order.
func UnionKeys(base []string, records []internal.Record) []string {
	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base))
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range base {
		add(k)
	}
	for _, rec := range records {
		for _, k := range rec.Keys() {
			add(k)
		}
	}
	return out
}

func LedgerTable(rows []internal.LedgerRecord) Table {
	t := Table{Header: internal.LedgerColumns, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.Values())
	}
	return t
}

func WriteTableCSV(t Table, outputPath string) error {
	return writeFile(outputPath, func(w io.Writer) error {
		cw := gocsv.DefaultCSVWriter(w)
		if err := cw.Write(t.Header); err != nil {
			return err
		}
		for _, row := range t.Rows {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func WriteLedgerCSV(rows []internal.LedgerRecord, outputPath string) error {
	return writeFile(outputPath, func(w io.Writer) error {
		if len(rows) == 0 {
			return WriteHeaderOnly(w, internal.LedgerColumns)
		}
		return gocsv.Marshal(&rows, w)
	})
}

func WriteHeaderOnly(w io.Writer, header []string) error {
	cw := gocsv.DefaultCSVWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// ReadRecordsCSV loads a table written by WriteTableCSV, keeping column order.
func ReadRecordsCSV(path string) ([]internal.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := gocsv.DefaultCSVReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	out := make([]internal.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(internal.Record, 0, len(header))
		for i, k := range header {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			rec = append(rec, internal.Field{Name: k, Value: v})
		}
		out = append(out, rec)
	}
	return out, nil
}

func WriteTableXLSX(t Table, sheetName, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheetName != "" && sheetName != sheet {
		if err := f.SetSheetName(sheet, sheetName); err != nil {
			return err
		}
		sheet = sheetName
	}

	for i, h := range t.Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

// writeFile writes through a temporary file so a failed write leaves any
// previous output in place.
func writeFile(outputPath string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(outputPath), "."+filepath.Base(outputPath)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), outputPath); err != nil {
		return fmt.Errorf("replace %s: %w", outputPath, err)
	}
	return nil
}

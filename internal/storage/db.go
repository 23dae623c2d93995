package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ledgerflow/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  startedAt TEXT NOT NULL,
  finishedAt TEXT,
  countsJson TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  path TEXT NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  category TEXT NOT NULL,
  hash TEXT NOT NULL,
  locality TEXT,
  status TEXT NOT NULL,
  error TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(runId, path),
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);

CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  documentId INTEGER NOT NULL UNIQUE,
  runId TEXT NOT NULL,
  category TEXT NOT NULL,
  fieldsJson TEXT NOT NULL,
  FOREIGN KEY(documentId) REFERENCES documents(id),
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

const (
	StatusExtracted = "extracted"
	StatusFailed    = "failed"
)

func (d *DB) BeginRun(id string, startedAt time.Time) error {
	_, err := d.conn.Exec(`INSERT INTO runs (id, startedAt) VALUES (?, ?)`, id, startedAt.UTC().Format(time.RFC3339))
	return err
}

func (d *DB) FinishRun(id string, finishedAt time.Time, counts map[string]int) error {
	countsJSON, _ := json.Marshal(counts)
	res, err := d.conn.Exec(`UPDATE runs SET finishedAt = ?, countsJson = ? WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339), string(countsJSON), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("run not found: " + id)
	}
	return nil
}

// SaveDocument stores the outcome for one document and, when it produced
// one, its record. Both writes share a transaction.
func (d *DB) SaveDocument(runID string, res internal.DocumentResult) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	status, errText := StatusExtracted, ""
	if res.Err != nil {
		status, errText = StatusFailed, res.Err.Error()
	}
	result, err := tx.Exec(`
INSERT INTO documents (runId, path, name, kind, category, hash, locality, status, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, runID, res.Path, res.Name, string(res.Kind), string(res.Category), res.Hash, res.Locality, status, errText)
	if err != nil {
		return 0, err
	}
	docID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if res.Err == nil {
		fieldsJSON, err := json.Marshal(res.Record)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(`INSERT INTO records (documentId, runId, category, fieldsJson) VALUES (?, ?, ?, ?)`,
			docID, runID, string(res.Category), string(fieldsJSON)); err != nil {
			return 0, err
		}
	}

	return docID, tx.Commit()
}

func (d *DB) ListRecords(runID string, category internal.Category) ([]internal.Record, error) {
	rows, err := d.conn.Query(`
SELECT r.fieldsJson FROM records r
JOIN documents doc ON doc.id = r.documentId
WHERE r.runId = ? AND r.category = ?
ORDER BY doc.id ASC
`, runID, string(category))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Record
	for rows.Next() {
		var fieldsJSON string
		if err := rows.Scan(&fieldsJSON); err != nil {
			return nil, err
		}
		var rec internal.Record
		if err := json.Unmarshal([]byte(fieldsJSON), &rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type DocumentRow struct {
	Path     string
	Name     string
	Category string
	Status   string
	Error    string
}

func (d *DB) ListDocuments(runID string) ([]DocumentRow, error) {
	rows, err := d.conn.Query(`
SELECT path, name, category, status, COALESCE(error, '')
FROM documents WHERE runId = ? ORDER BY id ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var row DocumentRow
		if err := rows.Scan(&row.Path, &row.Name, &row.Category, &row.Status, &row.Error); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) ListRuns(limit int) ([]internal.RunSummary, error) {
	rows, err := d.conn.Query(`
SELECT id, startedAt, COALESCE(finishedAt, ''), countsJson
FROM runs ORDER BY startedAt DESC, rowid DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunSummary
	for rows.Next() {
		var (
			run        internal.RunSummary
			countsJSON string
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &countsJSON); err != nil {
			return nil, err
		}
		counts := map[string]int{}
		_ = json.Unmarshal([]byte(countsJSON), &counts)
		run.Documents = counts["documents"]
		run.Failed = counts["failed"]
		run.Sales = counts["sales"]
		run.Purchases = counts["purchases"]
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

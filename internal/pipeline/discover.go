package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ledgerflow/internal"
)

const statementMarker = "delicatessen"

// Classify decides how a file name is read. Spreadsheets only count when
// they are delicatessen statements. Legacy .xls workbooks are not readable
// and are skipped.
func Classify(name string) (internal.SourceKind, bool) {
	lower := strings.ToLower(name)
	switch filepath.Ext(lower) {
	case ".pdf":
		return internal.SourcePDF, true
	case ".xlsx":
		if strings.Contains(lower, statementMarker) {
			return internal.SourceXLSX, true
		}
	case ".eml":
		return internal.SourceEML, true
	}
	return "", false
}

// Discover lists the documents in dir and its immediate subdirectories.
// Messages are expanded into one document per usable attachment. A missing
// directory yields no documents.
func Discover(dir string, category internal.Category) ([]Document, error) {
	paths, err := candidateFiles(dir)
	if err != nil {
		return nil, err
	}

	var docs []Document
	for _, path := range paths {
		kind, ok := Classify(filepath.Base(path))
		if !ok {
			continue
		}
		hash, err := fileHash(path)
		if err != nil {
			return nil, err
		}
		if kind != internal.SourceEML {
			docs = append(docs, Document{Path: path, Name: filepath.Base(path), Kind: kind, Category: category, Hash: hash})
			continue
		}
		parts, err := messageAttachments(path)
		if err != nil {
			// Broken messages surface as failed documents at build time.
			docs = append(docs, Document{Path: path, Name: filepath.Base(path), Attachment: filepath.Base(path), Kind: internal.SourceEML, Category: category, Hash: hash})
			continue
		}
		seen := map[string]int{}
		for _, p := range parts {
			name := attachmentName(p)
			akind, ok := Classify(name)
			if !ok || akind == internal.SourceEML {
				continue
			}
			seen[name]++
			docs = append(docs, Document{Path: path, Name: name, Attachment: name, Occurrence: seen[name], Kind: akind, Category: category, Hash: hash})
		}
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].Path != docs[j].Path {
			return docs[i].Path < docs[j].Path
		}
		return docs[i].Attachment < docs[j].Attachment
	})
	return docs, nil
}

func candidateFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if !e.IsDir() {
			out = append(out, path)
			continue
		}
		sub, err := os.ReadDir(path)
		if err != nil {
			return nil, err
		}
		for _, s := range sub {
			if !s.IsDir() {
				out = append(out, filepath.Join(path, s.Name()))
			}
		}
	}
	return out, nil
}

func fileHash(path string) (string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}

// Fingerprint summarises a document set so that changes can be detected
// between polls.
func Fingerprint(docs []Document) string {
	h := sha256.New()
	for _, d := range docs {
		h.Write([]byte(d.Label()))
		h.Write([]byte{0})
		h.Write([]byte(d.Hash))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

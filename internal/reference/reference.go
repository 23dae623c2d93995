package reference

import (
	"fmt"
	"sort"
	"strings"
)

type Entry struct {
	Locality     string
	SupplierCode string
	NominalCode  string
	DisplayName  string
}

// Table is the locality lookup. It is built once and never changed, so it can
// be shared freely between resolvers and extractors.
type Table struct {
	byLocality map[string]Entry
	bySupplier map[string]Entry
	aliases    map[string]string
}

func New(entries []Entry, aliases map[string]string) (*Table, error) {
	t := &Table{
		byLocality: make(map[string]Entry, len(entries)),
		bySupplier: make(map[string]Entry, len(entries)),
		aliases:    make(map[string]string, len(aliases)),
	}
	for _, e := range entries {
		key := normalize(e.Locality)
		if key == "" {
			return nil, fmt.Errorf("reference: empty locality")
		}
		if _, dup := t.byLocality[key]; dup {
			return nil, fmt.Errorf("reference: duplicate locality %q", e.Locality)
		}
		if _, dup := t.bySupplier[e.SupplierCode]; dup {
			return nil, fmt.Errorf("reference: supplier code %q mapped twice", e.SupplierCode)
		}
		if e.DisplayName == "" {
			e.DisplayName = e.Locality
		}
		t.byLocality[key] = e
		t.bySupplier[e.SupplierCode] = e
	}
	for alias, target := range aliases {
		key := normalize(target)
		if _, ok := t.byLocality[key]; !ok {
			return nil, fmt.Errorf("reference: alias %q points at unknown locality %q", alias, target)
		}
		t.aliases[normalize(alias)] = key
	}
	return t, nil
}

// Default returns the built-in branch table.
func Default() *Table {
	t, err := New([]Entry{
		{Locality: "Fgura", SupplierCode: "CHAINFGU", NominalCode: "4002", DisplayName: "Fgura"},
		{Locality: "Tarxien", SupplierCode: "CHAINTAR", NominalCode: "4001", DisplayName: "Tarxien"},
		{Locality: "Zabbar", SupplierCode: "CHAINZAB", NominalCode: "4003", DisplayName: "Zabbar"},
	}, map[string]string{
		"Carter":  "Tarxien",
		"Carters": "Tarxien",
	})
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Lookup(locality string) (Entry, bool) {
	key := normalize(locality)
	if target, ok := t.aliases[key]; ok {
		key = target
	}
	e, ok := t.byLocality[key]
	return e, ok
}

// SupplierCode returns "" for unknown localities.
func (t *Table) SupplierCode(locality string) string {
	e, _ := t.Lookup(locality)
	return e.SupplierCode
}

func (t *Table) NominalCode(locality string) string {
	e, _ := t.Lookup(locality)
	return e.NominalCode
}

// DisplayName returns the canonical name, or locality unchanged when unknown.
func (t *Table) DisplayName(locality string) string {
	if e, ok := t.Lookup(locality); ok {
		return e.DisplayName
	}
	return locality
}

func (t *Table) NominalCodeForSupplier(code string) string {
	return t.bySupplier[strings.TrimSpace(code)].NominalCode
}

// Entries lists the table ordered by locality.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, len(t.byLocality))
	for _, e := range t.byLocality {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return normalize(out[i].Locality) < normalize(out[j].Locality) })
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

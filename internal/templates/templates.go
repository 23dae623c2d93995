package templates

import (
	"strings"

	"ledgerflow/internal"
)

// Directive names an extractor. Template values that match a known directive
// are dispatched; everything else is copied through as a literal.
type Directive string

const (
	ExtractDate        Directive = "extract_date"
	ExtractReference   Directive = "extract_reference"
	ExtractDescription Directive = "extract_description"
	ExtractNet         Directive = "extract_net"
	ExtractVAT         Directive = "extract_vat"
	ExtractTotal       Directive = "extract_total"
	ExtractLocality    Directive = "extract_locality"

	CopySupplierCode Directive = "supplier_code"
	CopyNC           Directive = "NC_extract"
)

type Vocabulary map[string]Directive

func newVocabulary(ds ...Directive) Vocabulary {
	v := make(Vocabulary, len(ds))
	for _, d := range ds {
		v[string(d)] = d
	}
	return v
}

var (
	FieldDirectives = newVocabulary(
		ExtractDate, ExtractReference, ExtractDescription,
		ExtractNet, ExtractVAT, ExtractTotal, ExtractLocality,
	)
	UploadDirectives = newVocabulary(
		CopySupplierCode, CopyNC, ExtractDate, ExtractReference,
		ExtractDescription, ExtractNet, ExtractVAT,
	)
)

// Field is either a literal or a directive, never both.
type Field struct {
	Name      string
	Literal   string
	Directive Directive
}

func Literal(name, value string) Field { return Field{Name: name, Literal: value} }

func Directed(name string, d Directive) Field { return Field{Name: name, Directive: d} }

func (f Field) IsDirective() bool { return f.Directive != "" }

func (v Vocabulary) field(name, raw string) Field {
	if d, ok := v[strings.TrimSpace(raw)]; ok {
		return Directed(name, d)
	}
	return Literal(name, raw)
}

type Variant []Field

func (v Variant) Lookup(name string) (Field, bool) {
	for _, f := range v {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SupplierCode is the literal Supplier Code, "" when absent or directed.
func (v Variant) SupplierCode() string {
	f, ok := v.Lookup(internal.FieldSupplierCode)
	if !ok || f.IsDirective() {
		return ""
	}
	return f.Literal
}

func (v Variant) Keys() []string {
	out := make([]string, 0, len(v))
	for _, f := range v {
		out = append(out, f.Name)
	}
	return out
}

// WithLiteral returns a copy with name set to a literal value. The field keeps
// its position; a missing field is not added.
func (v Variant) WithLiteral(name, value string) Variant {
	out := make(Variant, len(v))
	copy(out, v)
	for i := range out {
		if out[i].Name == name {
			out[i] = Literal(name, value)
		}
	}
	return out
}

// WithDirective is WithLiteral for a directed field.
func (v Variant) WithDirective(name string, d Directive) Variant {
	out := make(Variant, len(v))
	copy(out, v)
	for i := range out {
		if out[i].Name == name {
			out[i] = Directed(name, d)
		}
	}
	return out
}

type Template struct {
	Name     string
	Variants []Variant
}

func (t Template) First() Variant {
	if len(t.Variants) == 0 {
		return nil
	}
	return t.Variants[0]
}

// Match returns the first variant carrying a literal Supplier Code equal to code.
func (t Template) Match(code string) (Variant, bool) {
	for _, v := range t.Variants {
		f, ok := v.Lookup(internal.FieldSupplierCode)
		if ok && !f.IsDirective() && f.Literal == code {
			return v, true
		}
	}
	return nil, false
}

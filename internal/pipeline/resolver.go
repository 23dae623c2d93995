package pipeline

import (
	"github.com/rs/zerolog"

	"ledgerflow/internal"
	"ledgerflow/internal/extract"
	"ledgerflow/internal/reference"
	"ledgerflow/internal/templates"
)

type Extractor func(src extract.Source, h extract.Hint) extract.Result

// Extractors is the directive dispatch table used for document templates.
var Extractors = map[templates.Directive]Extractor{
	templates.ExtractDate:        extract.Date,
	templates.ExtractReference:   extract.DocumentReference,
	templates.ExtractDescription: extract.Description,
	templates.ExtractNet:         extract.Net,
	templates.ExtractVAT:         extract.VAT,
	templates.ExtractTotal:       extract.Total,
	templates.ExtractLocality:    extract.Locality,
}

type Resolver struct {
	ref        *reference.Table
	templates  map[internal.Category]templates.Template
	extractors map[templates.Directive]Extractor
	log        zerolog.Logger
}

func NewResolver(ref *reference.Table, sales, purchases templates.Template, log zerolog.Logger) *Resolver {
	return &Resolver{
		ref: ref,
		templates: map[internal.Category]templates.Template{
			internal.CategorySales:     sales,
			internal.CategoryPurchases: purchases,
		},
		extractors: Extractors,
		log:        log,
	}
}

type Resolution struct {
	Record  internal.Record
	Variant templates.Variant
	Matched bool
	// Issues holds fields whose extraction failed to parse, as opposed to
	// fields that were simply absent.
	Issues map[string]error
}

func (r *Resolver) template(c internal.Category) templates.Template {
	t, ok := r.templates[c]
	if !ok || len(t.Variants) == 0 {
		return templates.Default(c)
	}
	return t
}

// Variant picks the template variant for a locality. The fallback is a copy
// of the first variant with the resolved supplier code written in. PDF
// statements always carry their total, so an empty literal Total is
// extracted for them.
func (r *Resolver) Variant(c internal.Category, locality string, kind internal.SourceKind) (templates.Variant, bool) {
	t := r.template(c)
	code := r.ref.SupplierCode(locality)
	v, matched := t.Match(code)
	if !matched {
		v = t.First().WithLiteral(internal.FieldSupplierCode, code)
		if kind == internal.SourcePDF {
			if nc := r.ref.NominalCodeForSupplier(code); nc != "" {
				v = v.WithLiteral(internal.FieldNC, nc)
			}
		}
	}
	if kind == internal.SourcePDF {
		if f, ok := v.Lookup(internal.FieldTotal); ok && !f.IsDirective() && f.Literal == "" {
			v = v.WithDirective(internal.FieldTotal, templates.ExtractTotal)
		}
	}
	return v, matched
}

func (r *Resolver) Resolve(c internal.Category, locality string, src extract.Source) Resolution {
	variant, matched := r.Variant(c, locality, src.Kind)
	if !matched {
		r.log.Debug().Str("document", src.Name).Str("locality", locality).Str("category", string(c)).
			Msg("no template variant for supplier code, using first variant")
	}

	hint := extract.Hint{Locality: locality, Category: c, Ref: r.ref}
	out := Resolution{Record: make(internal.Record, 0, len(variant)), Variant: variant, Matched: matched}
	for _, f := range variant {
		if !f.IsDirective() {
			out.Record.Set(f.Name, f.Literal)
			continue
		}
		fn, ok := r.extractors[f.Directive]
		if !ok {
			out.Record.Set(f.Name, string(f.Directive))
			continue
		}
		res := fn(src, hint)
		if res.Status == extract.StatusParseError {
			if out.Issues == nil {
				out.Issues = map[string]error{}
			}
			out.Issues[f.Name] = res.Err()
		}
		out.Record.Set(f.Name, res.String())
	}
	return out
}

// Blank is the all-empty record reported for documents that could not be read.
func (r *Resolver) Blank(c internal.Category) internal.Record {
	v := r.template(c).First()
	out := make(internal.Record, 0, len(v))
	for _, f := range v {
		out.Set(f.Name, "")
	}
	return out
}

func (r *Resolver) Keys(c internal.Category) []string {
	return r.template(c).First().Keys()
}

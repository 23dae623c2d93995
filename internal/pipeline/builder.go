package pipeline

import (
	"fmt"

	"github.com/rs/zerolog"

	"ledgerflow/internal"
	"ledgerflow/internal/extract"
)

type Builder struct {
	resolver *Resolver
	reader   Reader
	log      zerolog.Logger
}

func NewBuilder(resolver *Resolver, reader Reader, log zerolog.Logger) *Builder {
	if reader == nil {
		reader = FileReader{}
	}
	return &Builder{resolver: resolver, reader: reader, log: log}
}

// Build produces the record for one document. It never fails: unreadable
// documents and extraction panics come back as a blank record with Err set.
func (b *Builder) Build(doc Document) (res internal.DocumentResult) {
	res = internal.DocumentResult{
		Path:     doc.Label(),
		Name:     doc.Name,
		Category: doc.Category,
		Kind:     doc.Kind,
		Hash:     doc.Hash,
	}
	defer func() {
		if p := recover(); p != nil {
			res.Err = fmt.Errorf("extract %s: %v", doc.Name, p)
			res.Record = b.resolver.Blank(doc.Category)
			b.log.Error().Str("document", doc.Label()).Interface("panic", p).Msg("extraction aborted")
		}
	}()

	src, err := b.reader.Read(doc)
	if err != nil {
		res.Err = fmt.Errorf("read %s: %w", doc.Name, err)
		res.Record = b.resolver.Blank(doc.Category)
		b.log.Warn().Err(err).Str("document", doc.Label()).Msg("skipping unreadable document")
		return res
	}

	res.Locality = ResolveLocality(src)
	resolution := b.resolver.Resolve(doc.Category, res.Locality, src)
	for field, issue := range resolution.Issues {
		b.log.Debug().Err(issue).Str("document", doc.Label()).Str("field", field).Msg("field did not parse")
	}
	res.Record = resolution.Record
	return res
}

// ResolveLocality picks the locality before any template is chosen. Text
// documents use the address line, then a recognisable file name.
func ResolveLocality(src extract.Source) string {
	if src.IsGrid() {
		return extract.FilenameLocality(src.Name)
	}
	if r := extract.TextLocality(src.Text); r.Found() {
		return r.Value
	}
	if loc := extract.FilenameLocality(src.Name); loc != extract.UnknownLocality {
		return loc
	}
	return ""
}

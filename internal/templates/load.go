package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrMalformed = errors.New("malformed template")

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a template file. A missing file is not an error: fallback is
// returned and defaulted reports it. A file that exists but cannot be parsed
// is an error.
func Load(path string, vocab Vocabulary, fallback Template) (tmpl Template, defaulted bool, err error) {
	blob, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fallback, true, nil
	}
	if err != nil {
		return Template{}, false, err
	}
	tmpl, err = Parse(bytes.NewReader(blob), FormatOf(path), vocab)
	if err != nil {
		return Template{}, false, fmt.Errorf("%s: %w", path, err)
	}
	tmpl.Name = fallback.Name
	return tmpl, false, nil
}

// Parse reads either a list of objects or a single object. Key order is kept.
func Parse(r io.Reader, format Format, vocab Vocabulary) (Template, error) {
	var (
		objects [][][2]string
		err     error
	)
	switch format {
	case FormatYAML:
		objects, err = parseYAML(r)
	default:
		objects, err = parseJSON(r)
	}
	if err != nil {
		return Template{}, err
	}
	if len(objects) == 0 {
		return Template{}, fmt.Errorf("%w: no variants", ErrMalformed)
	}
	t := Template{Variants: make([]Variant, 0, len(objects))}
	for _, obj := range objects {
		v := make(Variant, 0, len(obj))
		for _, kv := range obj {
			v = append(v, vocab.field(kv[0], kv[1]))
		}
		t.Variants = append(t.Variants, v)
	}
	return t, nil
}

func parseJSON(r io.Reader) ([][][2]string, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch tok {
	case json.Delim('{'):
		obj, err := jsonObject(dec)
		if err != nil {
			return nil, err
		}
		return [][][2]string{obj}, nil
	case json.Delim('['):
	default:
		return nil, fmt.Errorf("%w: want list or object, got %v", ErrMalformed, tok)
	}
	var out [][][2]string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if tok != json.Delim('{') {
			return nil, fmt.Errorf("%w: list entries must be objects", ErrMalformed)
		}
		obj, err := jsonObject(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// jsonObject reads the members of an object whose '{' was already consumed.
func jsonObject(dec *json.Decoder) ([][2]string, error) {
	var out [][2]string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string key %v", ErrMalformed, tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		var value string
		switch v := tok.(type) {
		case string:
			value = v
		case json.Number:
			value = v.String()
		case bool:
			value = fmt.Sprint(v)
		case nil:
		default:
			return nil, fmt.Errorf("%w: field %q must be a scalar", ErrMalformed, key)
		}
		out = append(out, [2]string{key, value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

func parseYAML(r io.Reader) ([][][2]string, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.MappingNode:
		obj, err := yamlObject(root)
		if err != nil {
			return nil, err
		}
		return [][][2]string{obj}, nil
	case yaml.SequenceNode:
		out := make([][][2]string, 0, len(root.Content))
		for _, item := range root.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%w: line %d: list entries must be mappings", ErrMalformed, item.Line)
			}
			obj, err := yamlObject(item)
			if err != nil {
				return nil, err
			}
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: line %d: want list or mapping", ErrMalformed, root.Line)
	}
}

func yamlObject(n *yaml.Node) ([][2]string, error) {
	out := make([][2]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: field %q must be a scalar", ErrMalformed, v.Line, k.Value)
		}
		value := v.Value
		if v.Tag == "!!null" {
			value = ""
		}
		out = append(out, [2]string{k.Value, value})
	}
	return out, nil
}

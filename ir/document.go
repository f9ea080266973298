package ir

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileAggregator concatenates several IR source files into one YAML
// document while tracking each file's line span in the combined text,
// so a diagnostic carrying an absolute line number in the combined
// document can be mapped back to its originating file.
type FileAggregator struct {
	combined strings.Builder
	spans    []fileSpan
	lines    int
}

type fileSpan struct {
	name      string
	firstLine int // 1-based, inclusive
	lastLine  int // 1-based, inclusive
}

// NewFileAggregator builds an empty aggregator.
func NewFileAggregator() *FileAggregator {
	return &FileAggregator{}
}

// Add appends name's contents to the combined document, recording its
// line span.
func (a *FileAggregator) Add(name, contents string) {
	first := a.lines + 1
	if a.combined.Len() > 0 && !strings.HasSuffix(a.combined.String(), "\n") {
		a.combined.WriteByte('\n')
		a.lines++
	}
	a.combined.WriteString(contents)
	added := strings.Count(contents, "\n")
	if !strings.HasSuffix(contents, "\n") {
		added++
		a.combined.WriteByte('\n')
	}
	a.lines += added
	a.spans = append(a.spans, fileSpan{name: name, firstLine: first, lastLine: a.lines})
}

// Combined returns the concatenated text of every added file.
func (a *FileAggregator) Combined() string {
	return a.combined.String()
}

// Origin maps an absolute line number in Combined() back to the
// originating file name and the line number within that file.
func (a *FileAggregator) Origin(line int) (file string, lineInFile int, ok bool) {
	for _, s := range a.spans {
		if line >= s.firstLine && line <= s.lastLine {
			return s.name, line - s.firstLine + 1, true
		}
	}
	return "", 0, false
}

// ObjectNode is one typed object declaration: name, type and attrs
// (everything except "type" itself), plus the source line of the
// object's key for diagnostics.
type ObjectNode struct {
	Name  string
	Type  string
	Attrs map[string]any
	Line  int
}

// Document is a fully-classified IR source: the metalanguage state
// accumulated from air_types/air_attributes/air_processors, every typed
// object keyed by name, and every external object (a top-level key that
// is not a metalanguage directive and whose value is not a typed
// object mapping) keyed by name.
type Document struct {
	Meta     *Meta
	Objects  map[string]*ObjectNode
	External map[string]any

	Aggregator *FileAggregator
}

var metaKeys = map[string]bool{
	"air_types":      true,
	"air_attributes": true,
	"air_processors": true,
}

// Load reads and classifies the IR source files named in paths, in
// order, via an internal FileAggregator. contents supplies each path's
// text (callers own file I/O so this package stays testable without a
// filesystem).
func Load(paths []string, contents func(path string) (string, error)) (*Document, error) {
	agg := NewFileAggregator()
	for _, p := range paths {
		text, err := contents(p)
		if err != nil {
			return nil, fmt.Errorf("ir: reading %s: %w", p, err)
		}
		agg.Add(p, text)
	}
	return LoadString(agg.Combined(), agg)
}

// LoadString classifies an already-combined YAML document. agg may be
// nil when the caller has no per-file diagnostics to preserve (e.g. in
// tests that build a Document from an inline string).
func LoadString(text string, agg *FileAggregator) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, fmt.Errorf("ir: parsing yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return &Document{Meta: newMeta(), Objects: map[string]*ObjectNode{}, External: map[string]any{}, Aggregator: agg}, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, configError("", "top-level document must be a mapping")
	}

	doc := &Document{
		Meta:       newMeta(),
		Objects:    map[string]*ObjectNode{},
		External:   map[string]any{},
		Aggregator: agg,
	}

	// First pass: metalanguage directives, so every air_attributes entry
	// can validate against a fully-declared air_types set regardless of
	// key order in the source.
	for i := 0; i+1 < len(top.Content); i += 2 {
		key := top.Content[i].Value
		if key == "air_types" {
			var names []string
			if err := top.Content[i+1].Decode(&names); err != nil {
				return nil, configError("air_types", "%v", err)
			}
			doc.Meta.addTypes(names)
		}
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key := top.Content[i].Value
		if key == "air_processors" {
			var names []string
			if err := top.Content[i+1].Decode(&names); err != nil {
				return nil, configError("air_processors", "%v", err)
			}
			doc.Meta.addProcessors(names)
		}
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key := top.Content[i].Value
		if key != "air_attributes" {
			continue
		}
		var byType map[string][]string
		if err := top.Content[i+1].Decode(&byType); err != nil {
			return nil, configError("air_attributes", "%v", err)
		}
		for typ, extra := range byType {
			if err := doc.Meta.addAttributes(typ, extra); err != nil {
				return nil, err
			}
		}
	}

	// Second pass: typed and external objects.
	for i := 0; i+1 < len(top.Content); i += 2 {
		key := top.Content[i].Value
		if metaKeys[key] {
			continue
		}
		valNode := top.Content[i+1]

		typ, isTyped := objectType(valNode)
		if !isTyped {
			var raw any
			if err := valNode.Decode(&raw); err != nil {
				return nil, configError(key, "%v", err)
			}
			doc.External[key] = raw
			continue
		}

		if !doc.Meta.types[typ] {
			return nil, configError(key, "declares undeclared type %q", typ)
		}
		if _, dup := doc.Objects[key]; dup {
			return nil, configError(key, "duplicate object name")
		}

		attrs := make(map[string]any)
		for j := 0; j+1 < len(valNode.Content); j += 2 {
			attrName := valNode.Content[j].Value
			if attrName == "type" {
				continue
			}
			if !doc.Meta.recognizes(typ, attrName) {
				return nil, configError(key, "unrecognized attribute %q for type %q", attrName, typ)
			}
			var v any
			if err := valNode.Content[j+1].Decode(&v); err != nil {
				return nil, configError(key, "attribute %q: %v", attrName, err)
			}
			attrs[attrName] = v
		}

		doc.Objects[key] = &ObjectNode{Name: key, Type: typ, Attrs: attrs, Line: top.Content[i].Line}
	}

	return doc, nil
}

// objectType reports whether node is a typed-object mapping (has a
// "type" key) and, if so, returns that type's value.
func objectType(node *yaml.Node) (string, bool) {
	if node.Kind != yaml.MappingNode {
		return "", false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "type" {
			return node.Content[i+1].Value, true
		}
	}
	return "", false
}

// ObjectsOfType returns every typed object of the given type, in
// document order.
func (d *Document) ObjectsOfType(typ string) []*ObjectNode {
	var out []*ObjectNode
	for _, o := range d.Objects {
		if o.Type == typ {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

package ir

import (
	"github.com/packetpath/dataplane/header"
	"github.com/packetpath/dataplane/parser"
)

// parseStateAttrs is one parse_state object's declared extracts and
// select field, prior to being matched up with its graph edges.
type parseStateAttrs struct {
	extracts    []string
	selectField string
}

// BuildParsers builds every parser-typed object in doc into a
// *parser.Parser. parse_state-typed objects form a single flat
// namespace shared by every parser in the config, matching the
// original's global self.parser_states dict: a state named the same way
// in two different parsers' graphs is the same state.
func BuildParsers(doc *Document, wireHeaders map[string]*header.Descriptor, valueSets map[string]map[int64]bool) (map[string]*parser.Parser, error) {
	globalStates, err := collectParseStates(doc)
	if err != nil {
		return nil, err
	}

	parsers := make(map[string]*parser.Parser)
	for _, obj := range doc.ObjectsOfType("parser") {
		p, err := buildParser(obj, globalStates, wireHeaders, valueSets)
		if err != nil {
			return nil, err
		}
		parsers[obj.Name] = p
	}
	return parsers, nil
}

func collectParseStates(doc *Document) (map[string]parseStateAttrs, error) {
	states := make(map[string]parseStateAttrs)
	for _, obj := range doc.ObjectsOfType("parse_state") {
		var attrs parseStateAttrs

		if raw, ok := obj.Attrs["extracts"]; ok {
			list, err := toStringList(raw)
			if err != nil {
				return nil, configError(obj.Name, "extracts: %v", err)
			}
			attrs.extracts = list
		}

		if raw, ok := obj.Attrs["select_value"]; ok {
			list, err := toStringList(raw)
			if err != nil {
				return nil, configError(obj.Name, "select_value: %v", err)
			}
			if len(list) > 0 {
				attrs.selectField = list[0]
			}
		}

		states[obj.Name] = attrs
	}
	return states, nil
}

func buildParser(obj *ObjectNode, globalStates map[string]parseStateAttrs,
	wireHeaders map[string]*header.Descriptor, valueSets map[string]map[int64]bool) (*parser.Parser, error) {

	startState, err := stringAttr(obj.Attrs, "start_state")
	if err != nil {
		return nil, configError(obj.Name, "%v", err)
	}

	impl, err := stringAttr(obj.Attrs, "implementation")
	if err != nil {
		return nil, configError(obj.Name, "%v", err)
	}

	edges, err := ParseGraph(impl)
	if err != nil {
		return nil, configError(obj.Name, "implementation: %v", err)
	}

	byState := make(map[string][]parser.Edge)
	names := map[string]bool{startState: true}
	for _, e := range edges {
		names[e.Src] = true
		names[e.Dst] = true
		byState[e.Src] = append(byState[e.Src], toParserEdge(e))
	}

	states := make(map[string]*parser.State, len(names))
	for name := range names {
		attrs := globalStates[name]
		states[name] = &parser.State{
			Name:        name,
			Extracts:    attrs.extracts,
			SelectField: attrs.selectField,
			Edges:       byState[name],
		}
	}

	p, err := parser.New(obj.Name, startState, states, wireHeaders, valueSets)
	if err != nil {
		return nil, configError(obj.Name, "%v", err)
	}
	return p, nil
}

func toParserEdge(e GraphEdge) parser.Edge {
	pe := parser.Edge{
		Dest:          e.Dst,
		InValueSet:    e.Attrs["in_value_set"],
		NotInValueSet: e.Attrs["not_in_value_set"],
	}
	if e.HasVal {
		v := e.Val
		pe.Value = &v
	}
	return pe
}

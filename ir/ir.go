// Package ir loads the declarative YAML configuration (the AIR/IRI
// metalanguage) that describes a dataplane instance: headers, value
// sets, parsers, tables, actions, pipelines and traffic managers, plus
// the processor layout that wires them into a running engine.Switch.
//
// The top level of the configuration is a mapping. Each key is either a
// metalanguage directive (air_types, air_attributes, air_processors)
// that declares the recognized object types and their legal attributes,
// or a typed object declaration (name: {type: ..., ...}). Any other
// top-level key is an external object, recorded verbatim for callers
// that know how to interpret it (table_initialization is the only one
// this package consumes itself).
package ir

import (
	"fmt"
)

// ConfigError is a Configuration fatal error: an unknown object type, a
// bad metalanguage directive, a reference to an undeclared value set or
// table, or a malformed graph. Load and Build return these; callers are
// expected to log and exit rather than try to recover.
type ConfigError struct {
	Object string
	Msg    string
}

func (e *ConfigError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("ir: %s", e.Msg)
	}
	return fmt.Sprintf("ir: object %q: %s", e.Object, e.Msg)
}

func configError(object, format string, args ...any) error {
	return &ConfigError{Object: object, Msg: fmt.Sprintf(format, args...)}
}

// baseAttrs are implicitly legal on every declared type, per the
// metalanguage's own bootstrapping of air_types.
var baseAttrs = []string{"type", "doc"}

// Meta holds the metalanguage state accumulated from air_types,
// air_attributes and air_processors directives: the set of recognized
// object types, the legal attribute set per type, and the subset of
// types that may appear in a layout's processor chain.
type Meta struct {
	types      map[string]bool
	attrs      map[string][]string
	processors map[string]bool
}

func newMeta() *Meta {
	return &Meta{
		types:      make(map[string]bool),
		attrs:      make(map[string][]string),
		processors: make(map[string]bool),
	}
}

func (m *Meta) addTypes(names []string) {
	for _, t := range names {
		if m.types[t] {
			continue
		}
		m.types[t] = true
		m.attrs[t] = append([]string{}, baseAttrs...)
	}
}

func (m *Meta) addAttributes(typ string, extra []string) error {
	if !m.types[typ] {
		return configError(typ, "attributes assigned to unknown type")
	}
	m.attrs[typ] = append(m.attrs[typ], extra...)
	return nil
}

func (m *Meta) addProcessors(names []string) {
	for _, n := range names {
		m.processors[n] = true
	}
}

func (m *Meta) recognizes(typ, attr string) bool {
	for _, a := range m.attrs[typ] {
		if a == attr {
			return true
		}
	}
	return false
}

// Package action implements the closed set of action primitives
// (modify_field, add_header, remove_header, add_to_field, no_op) and the
// Action type that sequences them with parallel parameter binding.
package action

import (
	"fmt"

	"github.com/packetpath/dataplane/header"
	"github.com/packetpath/dataplane/packet"
)

// Primitive is one step of an action's implementation.
type Primitive interface {
	// Apply mutates p using values, the action's resolved parameter map.
	Apply(p *packet.ParsedPacket, values map[string]any) error
}

// ModifyField sets Destination from Source, optionally blending the two
// under Mask: (dst & ^mask) | (src & mask). Mask is, like Destination and
// Source, a name resolved against the action's value map — empty means
// no mask (plain assignment).
type ModifyField struct {
	Destination string
	Source      string
	Mask        string
}

// Apply implements Primitive.
func (m ModifyField) Apply(p *packet.ParsedPacket, values map[string]any) error {
	src, ok := resolveInt64(values, m.Source)
	if !ok {
		return fmt.Errorf("action: modify_field source %q did not resolve to a value", m.Source)
	}

	newVal := src
	if m.Mask != "" {
		mask, ok := resolveInt64(values, m.Mask)
		if !ok {
			return fmt.Errorf("action: modify_field mask %q did not resolve to a value", m.Mask)
		}
		dst, ok := resolveInt64(values, m.Destination)
		if !ok {
			dst = 0
		}
		newVal = (dst &^ mask) | (src & mask)
	}

	p.SetField(m.Destination, newVal)
	return nil
}

// AddHeader appends a freshly-zeroed instance of Desc to the packet,
// anchored immediately after the packet's current last header.
type AddHeader struct {
	HeaderRef string
	Desc      *header.Descriptor
}

// Apply implements Primitive.
func (a AddHeader) Apply(p *packet.ParsedPacket, values map[string]any) error {
	anchor, ok := p.LastHeaderName()
	if !ok {
		return fmt.Errorf("action: add_header %q has no anchor header to attach after", a.HeaderRef)
	}
	_, err := p.AddHeaderAfter(a.HeaderRef, a.Desc, anchor)
	return err
}

// RemoveHeader removes HeaderRef from the packet's ordered header map.
type RemoveHeader struct {
	HeaderRef string
}

// Apply implements Primitive.
func (r RemoveHeader) Apply(p *packet.ParsedPacket, values map[string]any) error {
	p.RemoveHeader(r.HeaderRef)
	return nil
}

// AddToField adds Value into the current value of FieldRef.
type AddToField struct {
	FieldRef string
	Value    int64
}

// Apply implements Primitive.
func (a AddToField) Apply(p *packet.ParsedPacket, values map[string]any) error {
	cur, ok := p.GetField(a.FieldRef)
	if !ok {
		return fmt.Errorf("action: add_to_field target %q not present on packet", a.FieldRef)
	}
	curVal, ok := asInt64(cur)
	if !ok {
		return fmt.Errorf("action: add_to_field target %q is not numeric", a.FieldRef)
	}
	p.SetField(a.FieldRef, curVal+a.Value)
	return nil
}

// NoOp does nothing.
type NoOp struct{}

// Apply implements Primitive.
func (NoOp) Apply(p *packet.ParsedPacket, values map[string]any) error { return nil }

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// resolveInt64 looks up name in values only (a bound action parameter or
// a snapshotted field reference). A name that is not a key does not
// resolve and returns false; an integer literal written as an argument is
// not parsed here and does not resolve either.
func resolveInt64(values map[string]any, name string) (int64, bool) {
	v, ok := values[name]
	if !ok {
		return 0, false
	}
	return asInt64(v)
}

// Action is a named parameter list plus an ordered sequence of
// primitives. Parameters are bound with parallel semantics: a single
// snapshot of (action_params + referenced packet fields) is taken before
// any primitive runs, so earlier primitives never see later ones'
// mutations through the value map.
type Action struct {
	name       string
	paramList  []string
	primitives []Primitive
	paramRefs  map[string]struct{}
}

// New builds an Action from its declared parameter list, its primitive
// sequence, and the set of textual argument names referenced anywhere in
// that sequence (paramRefs) — names in paramRefs that aren't supplied by
// a table entry's action_params are resolved against the packet at eval
// time.
func New(name string, paramList []string, primitives []Primitive, paramRefs map[string]struct{}) *Action {
	return &Action{name: name, paramList: paramList, primitives: primitives, paramRefs: paramRefs}
}

// Name returns the action's name.
func (a *Action) Name() string { return a.name }

// Eval applies a to p using actionParams, the parameter values bound by
// the table entry that invoked it. actionParams' keys must match a's
// declared parameter list exactly.
func (a *Action) Eval(p *packet.ParsedPacket, actionParams map[string]any) error {
	if !sameKeys(actionParams, a.paramList) {
		return fmt.Errorf("action %q: need params %v, got %v", a.name, a.paramList, keysOf(actionParams))
	}

	values := make(map[string]any, len(actionParams)+len(a.paramRefs))
	for k, v := range actionParams {
		values[k] = v
	}
	for ref := range a.paramRefs {
		if _, ok := values[ref]; ok {
			continue
		}
		if v, ok := p.GetField(ref); ok {
			values[ref] = v
		}
	}

	for _, prim := range a.primitives {
		if err := prim.Apply(p, values); err != nil {
			return err
		}
	}
	return nil
}

func sameKeys(m map[string]any, names []string) bool {
	if len(m) != len(names) {
		return false
	}
	for _, n := range names {
		if _, ok := m[n]; !ok {
			return false
		}
	}
	return true
}

func keysOf(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Registry is a name -> *Action map implementing match.ActionEvaluator,
// so a match.Table can dispatch into actions without importing this
// package's construction-time types.
type Registry struct {
	actions map[string]*Action
}

// NewRegistry builds a Registry from a name -> *Action map.
func NewRegistry(actions map[string]*Action) *Registry {
	return &Registry{actions: actions}
}

// Eval looks up name in the registry and evaluates it against p, params.
// An unknown action name is a no-op: the table's miss/hit logic may
// legitimately carry a control-flow-only action name (e.g. "queue" or
// "egress") that has no registered Action behind it.
func (r *Registry) Eval(name string, p *packet.ParsedPacket, params map[string]any) error {
	act, ok := r.actions[name]
	if !ok {
		return nil
	}
	return act.Eval(p, params)
}

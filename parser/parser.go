// Package parser implements the graph-driven parser state machine: the
// processor stage that decides which headers to extract from an
// ingressing packet, and in what order.
package parser

import (
	"fmt"

	"github.com/packetpath/dataplane/header"
	"github.com/packetpath/dataplane/packet"
	"github.com/packetpath/dataplane/proc"
)

// Edge is one outgoing transition of a parser state, flattened from the
// IR's text-format directed graph at construction time (spec §9: the
// graph itself is not needed at runtime).
type Edge struct {
	Dest string

	// Exactly one of these selects the edge's condition; none of them
	// set means the edge is the state's default.
	Value         *int64
	InValueSet    string
	NotInValueSet string
}

// State describes one parser state: the headers it extracts (if any) and
// the field reference it reads to pick its outgoing transition.
type State struct {
	Name        string
	Extracts    []string
	SelectField string
	Edges       []Edge
}

// StateTransition holds the transition information for one parser state,
// flattened into the four-way priority lookup used by NextState.
type StateTransition struct {
	name           string
	valueMap       map[int64]string
	inValueSets    map[string]string
	notInValueSets map[string]string
	defaultState   string
	hasDefault     bool
}

// NewStateTransition partitions state's outgoing edges into the
// value/value-set/negated-value-set/default maps. An edge referencing an
// unknown value set fails construction (Configuration fatal, spec §7).
func NewStateTransition(state *State, valueSets map[string]map[int64]bool) (*StateTransition, error) {
	t := &StateTransition{
		name:           state.Name,
		valueMap:       make(map[int64]string),
		inValueSets:    make(map[string]string),
		notInValueSets: make(map[string]string),
	}

	for _, e := range state.Edges {
		switch {
		case e.Value != nil:
			t.valueMap[*e.Value] = e.Dest
		case e.InValueSet != "":
			if _, ok := valueSets[e.InValueSet]; !ok {
				return nil, fmt.Errorf("parser: unknown value set %q", e.InValueSet)
			}
			t.inValueSets[e.InValueSet] = e.Dest
		case e.NotInValueSet != "":
			if _, ok := valueSets[e.NotInValueSet]; !ok {
				return nil, fmt.Errorf("parser: unknown value set %q", e.NotInValueSet)
			}
			t.notInValueSets[e.NotInValueSet] = e.Dest
		default:
			t.defaultState = e.Dest
			t.hasDefault = true
		}
	}

	return t, nil
}

// NextState resolves the next parser state for selectValue, in priority
// order: a nil selectValue goes straight to default; a specific value
// match wins over value-set membership; positive value sets are checked
// before negated ones; an unmatched value falls through to default.
func (t *StateTransition) NextState(selectValue *int64, valueSets map[string]map[int64]bool) (string, bool) {
	if selectValue == nil {
		return t.defaultState, t.hasDefault
	}

	if dest, ok := t.valueMap[*selectValue]; ok {
		return dest, true
	}

	for setName, dest := range t.inValueSets {
		if valueSets[setName][*selectValue] {
			return dest, true
		}
	}

	for setName, dest := range t.notInValueSets {
		if !valueSets[setName][*selectValue] {
			return dest, true
		}
	}

	return t.defaultState, t.hasDefault
}

// Parser is a graph-driven header-extraction state machine.
type Parser struct {
	name        string
	startState  string
	states      map[string]*State
	transitions map[string]*StateTransition
	headers     map[string]*header.Descriptor
	valueSets   map[string]map[int64]bool
	next        proc.Processor
}

// New builds a Parser from its declared states, flattening each state's
// edges into a StateTransition. Unknown value-set references fail here.
func New(name, startState string, states map[string]*State,
	headers map[string]*header.Descriptor, valueSets map[string]map[int64]bool) (*Parser, error) {

	p := &Parser{
		name:        name,
		startState:  startState,
		states:      states,
		headers:     headers,
		valueSets:   valueSets,
		transitions: make(map[string]*StateTransition, len(states)),
	}

	for stateName, state := range states {
		t, err := NewStateTransition(state, valueSets)
		if err != nil {
			return nil, err
		}
		p.transitions[stateName] = t
	}

	return p, nil
}

// Name implements proc.Processor.
func (p *Parser) Name() string { return p.name }

// SetNext implements proc.Chained.
func (p *Parser) SetNext(next proc.Processor) { p.next = next }

// Process drives the parser state machine: starting at the start state,
// it extracts each state's declared headers, reads the select field (if
// any) from the just-updated packet, consults the transition, and
// advances. It terminates on a nil next state and hands the packet to
// next_processor.
func (p *Parser) Process(pkt *packet.ParsedPacket) {
	stateName := p.startState

	for stateName != "" {
		state := p.states[stateName]
		transitions := p.transitions[stateName]

		for _, hdrName := range state.Extracts {
			desc := p.headers[hdrName]
			if err := pkt.ParseHeader(hdrName, desc); err != nil {
				pkt.SetParseError(err)
				break
			}
		}

		var selectValue *int64
		if state.SelectField != "" {
			if v, ok := pkt.GetField(state.SelectField); ok {
				if iv, ok := asInt64(v); ok {
					selectValue = &iv
				}
			}
		}

		next, ok := transitions.NextState(selectValue, p.valueSets)
		if !ok {
			break
		}
		stateName = next
	}

	if p.next != nil {
		p.next.Process(pkt)
	}
}

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

// Package control implements the pipeline: a collection of tables
// wired together by a control-flow graph, and the traversal logic that
// walks a packet table to table until it reaches exit_control_flow.
package control

import (
	"fmt"

	"github.com/packetpath/dataplane/match"
	"github.com/packetpath/dataplane/packet"
	"github.com/packetpath/dataplane/proc"
)

// exitControlFlow is the sentinel destination name that ends pipeline
// traversal and hands the packet to the next processor.
const exitControlFlow = "exit_control_flow"

// Edge is one control-flow graph edge, flattened from the IR's
// text-format directed graph at construction time.
type Edge struct {
	Src, Dst string
	// Action is the transition's attribute key: a literal action name,
	// or one of the reserved keys "always", "miss", "hit", "default".
	Action string
}

// Pipeline manages a group of tables and the control flow between them.
type Pipeline struct {
	name          string
	tables        map[string]*match.Table
	transitions   map[string]map[string]string
	firstTable    string
	next          proc.Processor
}

// New builds a Pipeline from a flattened edge list and the set of tables
// it dispatches into. It computes the unique entry table: the table that
// never appears as an edge destination (excluding exit_control_flow).
// Construction fails (Configuration fatal) if an edge references an
// unknown table, or if the entry-table count isn't exactly one.
func New(name string, edges []Edge, tables map[string]*match.Table) (*Pipeline, error) {
	transitions := make(map[string]map[string]string)
	hasIncoming := make(map[string]bool)

	for _, e := range edges {
		if _, ok := tables[e.Src]; !ok {
			return nil, fmt.Errorf("control: pipeline %q references unknown table %q", name, e.Src)
		}
		if transitions[e.Src] == nil {
			transitions[e.Src] = make(map[string]string)
		}
		transitions[e.Src][e.Action] = e.Dst

		if e.Dst != exitControlFlow {
			if _, ok := tables[e.Dst]; !ok {
				return nil, fmt.Errorf("control: pipeline %q references unknown table %q", name, e.Dst)
			}
			if transitions[e.Dst] == nil {
				transitions[e.Dst] = make(map[string]string)
			}
			hasIncoming[e.Dst] = true
		}
	}

	var entry string
	count := 0
	for tableName := range transitions {
		if !hasIncoming[tableName] {
			entry = tableName
			count++
		}
	}
	if count != 1 {
		return nil, fmt.Errorf("control: pipeline %q has %d entry points, want 1", name, count)
	}

	return &Pipeline{
		name:        name,
		tables:      tables,
		transitions: transitions,
		firstTable:  entry,
	}, nil
}

// Name implements proc.Processor.
func (pl *Pipeline) Name() string { return pl.name }

// SetNext implements proc.Chained.
func (pl *Pipeline) SetNext(next proc.Processor) { pl.next = next }

// Process walks p through the pipeline's tables until it reaches
// exit_control_flow, then hands p to next_processor. Transition
// precedence at each table: "always" overrides everything; on a miss,
// "miss" then the specific action name; on a hit, the specific action
// name first, then "hit", then "default".
func (pl *Pipeline) Process(p *packet.ParsedPacket) {
	current := pl.firstTable

	for current != exitControlFlow {
		table := pl.tables[current]
		transitions := pl.transitions[current]

		hit, action := table.Process(p)

		next := exitControlFlow
		switch {
		case hasKey(transitions, "always"):
			next = transitions["always"]
		case !hit:
			if hasKey(transitions, "miss") {
				next = transitions["miss"]
			} else if action != "" && hasKey(transitions, action) {
				next = transitions[action]
			}
		default: // hit
			if action != "" && hasKey(transitions, action) {
				next = transitions[action]
			} else if hasKey(transitions, "hit") {
				next = transitions["hit"]
			} else if hasKey(transitions, "default") {
				next = transitions["default"]
			}
		}

		current = next
	}

	if pl.next != nil {
		pl.next.Process(p)
	}
}

func hasKey(m map[string]string, k string) bool {
	_, ok := m[k]
	return ok
}

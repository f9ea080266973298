// Package match implements the table + entry match-action primitive:
// exact and ternary entries, a default entry, and hit/byte counters.
package match

import (
	"fmt"
	"sync"

	"github.com/packetpath/dataplane/packet"
)

// Entry is a single table row: a match predicate plus the action it
// triggers on a hit.
type Entry interface {
	// CheckMatch reports whether p satisfies this entry's predicate.
	CheckMatch(p *packet.ParsedPacket) bool
	Action() (string, map[string]any)
}

type baseEntry struct {
	actionRef    string
	actionParams map[string]any
}

func (e *baseEntry) Action() (string, map[string]any) { return e.actionRef, e.actionParams }

// ExactEntry matches when every named field equals its declared value.
type ExactEntry struct {
	baseEntry
	MatchValues map[string]int64
}

// NewExactEntry builds an exact-match entry.
func NewExactEntry(matchValues map[string]int64, actionRef string, actionParams map[string]any) *ExactEntry {
	return &ExactEntry{
		baseEntry:   baseEntry{actionRef: actionRef, actionParams: actionParams},
		MatchValues: matchValues,
	}
}

// CheckMatch implements Entry. A field absent from the packet, or one
// whose value differs, is a non-match (no error: spec soft-fail rule).
func (e *ExactEntry) CheckMatch(p *packet.ParsedPacket) bool {
	for field, want := range e.MatchValues {
		v, ok := p.GetField(field)
		if !ok {
			return false
		}
		got, ok := asInt64(v)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// TernaryEntry matches with an optional per-field mask; an unmasked
// field in MatchMasks behaves as an exact match for that field.
type TernaryEntry struct {
	baseEntry
	MatchValues map[string]int64
	MatchMasks  map[string]int64
	Priority    int
}

// NewTernaryEntry builds a ternary-match entry. priority is recorded and
// reported but does not reorder the table's scan order.
func NewTernaryEntry(matchValues, matchMasks map[string]int64, actionRef string,
	actionParams map[string]any, priority int) *TernaryEntry {
	return &TernaryEntry{
		baseEntry:   baseEntry{actionRef: actionRef, actionParams: actionParams},
		MatchValues: matchValues,
		MatchMasks:  matchMasks,
		Priority:    priority,
	}
}

// CheckMatch implements Entry.
func (e *TernaryEntry) CheckMatch(p *packet.ParsedPacket) bool {
	for field, want := range e.MatchValues {
		v, ok := p.GetField(field)
		if !ok {
			return false
		}
		got, ok := asInt64(v)
		if !ok {
			return false
		}
		if mask, hasMask := e.MatchMasks[field]; hasMask {
			if got&mask != want&mask {
				return false
			}
		} else if got != want {
			return false
		}
	}
	return true
}

// DefaultEntry always matches; it is never stored in Table.entries and is
// only reachable via Table.Process's miss path.
type DefaultEntry struct {
	baseEntry
}

// NewDefaultEntry builds a default (miss-path) entry.
func NewDefaultEntry(actionRef string, actionParams map[string]any) *DefaultEntry {
	return &DefaultEntry{baseEntry{actionRef: actionRef, actionParams: actionParams}}
}

// CheckMatch implements Entry; a DefaultEntry always matches.
func (e *DefaultEntry) CheckMatch(p *packet.ParsedPacket) bool { return true }

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

// ActionEvaluator evaluates a named action against a packet with
// parameters, so Table.Process can trigger the hit/miss action without
// importing the action package directly (avoiding a cycle: action may
// eventually need match for introspection).
type ActionEvaluator interface {
	Eval(name string, p *packet.ParsedPacket, params map[string]any) error
}

// Table is an ordered list of entries, an optional default entry, and
// hit/byte counters, guarded by a single mutex shared between packet
// processing and control-plane mutation.
type Table struct {
	name     string
	actions  ActionEvaluator
	mu       sync.Mutex
	entries  []Entry
	defEntry *DefaultEntry

	byteCount   int64
	packetCount int64
}

// NewTable builds an empty table bound to actions for action dispatch.
func NewTable(name string, actions ActionEvaluator) *Table {
	return &Table{name: name, actions: actions}
}

// Name returns the table's name.
func (t *Table) Name() string { return t.name }

// Process runs p through the table: the first entry whose CheckMatch
// succeeds wins (first-match-wins scan order); on a miss the default
// entry (if any) fires instead. Counters are only incremented on a real
// hit, never on a default-entry miss. The resolved action, if any, is
// evaluated before Process returns.
func (t *Table) Process(p *packet.ParsedPacket) (hit bool, actionRef string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var params map[string]any

	for _, e := range t.entries {
		if e.CheckMatch(p) {
			actionRef, params = e.Action()
			hit = true
			t.packetCount++
			t.byteCount += int64(p.HeaderLength() + p.PayloadLength())
			break
		}
	}

	if !hit && t.defEntry != nil {
		actionRef, params = t.defEntry.Action()
	}

	if actionRef != "" && t.actions != nil {
		t.actions.Eval(actionRef, p, params)
	}

	return hit, actionRef
}

// AddEntry appends entry to the table's scan list. A *DefaultEntry is
// redirected to SetDefaultEntry instead of being appended.
func (t *Table) AddEntry(entry Entry) {
	if def, ok := entry.(*DefaultEntry); ok {
		t.SetDefaultEntry(def)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
}

// RemoveEntry removes the first occurrence of entry from the table.
// Returns an error if entry is not present.
func (t *Table) RemoveEntry(entry Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, e := range t.entries {
		if e == entry {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("match: entry not present in table %q", t.name)
}

// Clear removes all entries. If clearStats, counters reset to zero. If
// clearDefault, the default entry is cleared too.
func (t *Table) Clear(clearStats, clearDefault bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	if clearStats {
		t.packetCount = 0
		t.byteCount = 0
	}
	if clearDefault {
		t.defEntry = nil
	}
}

// SetDefaultEntry installs entry as the table's miss-path action.
func (t *Table) SetDefaultEntry(entry *DefaultEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.defEntry = entry
}

// HitStats returns (byte count, packet count).
func (t *Table) HitStats() (int64, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byteCount, t.packetCount
}

// Entries returns a snapshot of the current scan-order entry list.
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Package controlplane implements the HTTP API that lets an external
// caller mutate a running dataplane's match tables: add and remove
// entries, clear a table, and set its default entry. Every mutation
// below /api/v1 goes straight through to match.Table's own
// mutex-guarded methods; this package adds nothing beyond request
// parsing, response encoding, and RS256 JWT authentication.
package controlplane

import (
	"sync"

	"github.com/google/uuid"

	"github.com/packetpath/dataplane/match"
)

// Server holds the dependencies the REST handlers need: the live set of
// tables this switch instance built, and an index from a
// caller-visible entry ID back to the match.Entry it names (since
// match.Table itself tracks entries by identity, not by ID).
type Server struct {
	tables map[string]*match.Table

	mu      sync.Mutex
	entries map[string]map[string]match.Entry // table name -> entry id -> entry
}

// NewServer builds a Server bound to tables, keyed by table name.
func NewServer(tables map[string]*match.Table) *Server {
	return &Server{
		tables:  tables,
		entries: make(map[string]map[string]match.Entry),
	}
}

func (s *Server) table(name string) (*match.Table, bool) {
	t, ok := s.tables[name]
	return t, ok
}

func (s *Server) recordEntry(table string, entry match.Entry) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[table] == nil {
		s.entries[table] = make(map[string]match.Entry)
	}
	id := uuid.NewString()
	s.entries[table][id] = entry
	return id
}

func (s *Server) takeEntry(table, id string) (match.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID := s.entries[table]
	if byID == nil {
		return nil, false
	}
	entry, ok := byID[id]
	if ok {
		delete(byID, id)
	}
	return entry, ok
}

func (s *Server) forgetTable(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, table)
}

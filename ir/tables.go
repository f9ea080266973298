package ir

import "github.com/packetpath/dataplane/match"

// BuildTables builds an empty *match.Table for every table-typed object
// in doc, all bound to the same action registry. Entries are populated
// afterward, by ProcessTableInit against the table_initialization
// external object.
func BuildTables(doc *Document, actions match.ActionEvaluator) map[string]*match.Table {
	tables := make(map[string]*match.Table)
	for _, obj := range doc.ObjectsOfType("table") {
		tables[obj.Name] = match.NewTable(obj.Name, actions)
	}
	return tables
}

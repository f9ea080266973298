package ir

import (
	"github.com/packetpath/dataplane/control"
	"github.com/packetpath/dataplane/match"
)

// BuildPipelines builds every pipeline-typed object in doc into a
// *control.Pipeline, parsing its implementation attribute as the shared
// directed-graph text format. Only edges carrying a non-empty "action"
// attribute describe a meaningful transition, mirroring the original's
// own "if 'action' in attrs" guard: an edge with no action is graph
// structure only and is dropped here.
func BuildPipelines(doc *Document, tables map[string]*match.Table) (map[string]*control.Pipeline, error) {
	pipelines := make(map[string]*control.Pipeline)

	for _, obj := range doc.ObjectsOfType("pipeline") {
		impl, err := stringAttr(obj.Attrs, "implementation")
		if err != nil {
			return nil, configError(obj.Name, "%v", err)
		}

		graphEdges, err := ParseGraph(impl)
		if err != nil {
			return nil, configError(obj.Name, "implementation: %v", err)
		}

		var edges []control.Edge
		for _, e := range graphEdges {
			action, ok := e.Attrs["action"]
			if !ok || action == "" {
				continue
			}
			edges = append(edges, control.Edge{Src: e.Src, Dst: e.Dst, Action: action})
		}

		pl, err := control.New(obj.Name, edges, tables)
		if err != nil {
			return nil, configError(obj.Name, "%v", err)
		}
		pipelines[obj.Name] = pl
	}

	return pipelines, nil
}

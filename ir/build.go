package ir

import (
	"github.com/packetpath/dataplane/action"
	"github.com/packetpath/dataplane/engine"
	"github.com/packetpath/dataplane/match"
	"github.com/packetpath/dataplane/proc"
	"github.com/packetpath/dataplane/tm"
	"go.uber.org/zap"
)

// Result is everything Build assembles from a Document: the switch
// ready to Enable and Start, and the tables it built, keyed by name,
// so a caller can hand them to controlplane.NewServer.
type Result struct {
	Switch *engine.Switch
	Tables map[string]*match.Table
}

// Build assembles a fully-wired *engine.Switch from doc: every header,
// value set, parser, table, action, pipeline and traffic manager is
// built, table_initialization is applied, and the layout object's
// implementation list is wired into a single processor chain terminated
// by a TransmitProcessor. logger receives an Info line per construction
// stage; a nil logger is replaced with zap.NewNop().
func Build(doc *Document, switchName string, dataplane engine.Dataplane, logger *zap.Logger) (*Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	wireHeaders, metadataHeaders, err := BuildHeaders(doc)
	if err != nil {
		return nil, err
	}
	logger.Info("headers built", zap.Int("wire_headers", len(wireHeaders)), zap.Int("metadata_headers", len(metadataHeaders)))

	valueSets, err := BuildValueSets(doc)
	if err != nil {
		return nil, err
	}

	parsers, err := BuildParsers(doc, wireHeaders, valueSets)
	if err != nil {
		return nil, err
	}
	logger.Info("parsers built", zap.Int("count", len(parsers)))

	actions, err := BuildActions(doc, wireHeaders)
	if err != nil {
		return nil, err
	}
	registry := action.NewRegistry(actions)

	tables := BuildTables(doc, registry)
	if err := ProcessTableInit(doc, tables); err != nil {
		return nil, err
	}
	logger.Info("tables built", zap.Int("count", len(tables)))

	pipelines, err := BuildPipelines(doc, tables)
	if err != nil {
		return nil, err
	}
	logger.Info("pipelines built", zap.Int("count", len(pipelines)))

	trafficManagers, err := BuildTrafficManagers(doc)
	if err != nil {
		return nil, err
	}
	logger.Info("traffic managers built", zap.Int("count", len(trafficManagers)))

	layoutObj, ok := doc.Objects["layout"]
	if !ok || layoutObj.Type != "layout" {
		return nil, configError("layout", "missing required layout object")
	}
	names, err := toStringList(layoutObj.Attrs["implementation"])
	if err != nil {
		return nil, configError("layout", "implementation: %v", err)
	}
	if len(names) == 0 {
		return nil, configError("layout", "implementation must name at least one processor")
	}

	var stages []proc.Chained
	var orderedTMs []*tm.TrafficManager
	for _, name := range names {
		obj, ok := doc.Objects[name]
		if !ok {
			return nil, configError("layout", "implementation references unknown processor %q", name)
		}
		if len(doc.Meta.processors) > 0 && !doc.Meta.processors[obj.Type] {
			return nil, configError("layout", "object %q has type %q, not declared in air_processors", name, obj.Type)
		}

		switch {
		case parsers[name] != nil:
			stages = append(stages, parsers[name])
		case pipelines[name] != nil:
			stages = append(stages, pipelines[name])
		case trafficManagers[name] != nil:
			stages = append(stages, trafficManagers[name])
			orderedTMs = append(orderedTMs, trafficManagers[name])
		default:
			return nil, configError("layout", "implementation references unbuildable processor %q", name)
		}
	}

	tx := engine.NewTransmitProcessor(dataplane)
	head := engine.WireChain(stages, tx)

	sw := engine.NewSwitch(switchName, dataplane, metadataHeaders, head, orderedTMs)
	logger.Info("switch assembled", zap.String("name", switchName), zap.Int("layout_stages", len(stages)))
	return &Result{Switch: sw, Tables: tables}, nil
}

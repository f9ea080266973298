package ir

import "github.com/packetpath/dataplane/tm"

// BuildTrafficManagers builds every traffic_manager-typed object in doc
// into a *tm.TrafficManager.
//
// port_count is declared per object here rather than reused from a
// single process-wide value: the original's SimpleQueueManager is
// always constructed with one shared self.port_count, but nothing in
// the IR it reads ties that count to a config attribute — it's an
// instance property of the surrounding IriInstance the distilled format
// doesn't carry forward. Giving each traffic_manager object its own
// port_count is a strict generalization (a config with one traffic
// manager declares it once, identically to the original's behavior) and
// fits a declarative schema better than an implicit global.
//
// multicast_groups is, likewise, a convention this format introduces:
// the original's self.multicast_map is allocated but never populated
// from configuration (same unfinished state as value sets). Declaring
// groups directly as an attribute — {mc_idx: [[port, queue], ...]} —
// is the symmetric fix.
func BuildTrafficManagers(doc *Document) (map[string]*tm.TrafficManager, error) {
	tms := make(map[string]*tm.TrafficManager)

	for _, obj := range doc.ObjectsOfType("traffic_manager") {
		portCountRaw, ok := obj.Attrs["port_count"]
		if !ok {
			return nil, configError(obj.Name, "missing required attribute \"port_count\"")
		}
		portCount, err := toInt64(portCountRaw)
		if err != nil {
			return nil, configError(obj.Name, "port_count: %v", err)
		}

		queuesRaw, ok := obj.Attrs["queues_per_port"]
		if !ok {
			return nil, configError(obj.Name, "missing required attribute \"queues_per_port\"")
		}
		queuesPerPort, err := toInt64(queuesRaw)
		if err != nil {
			return nil, configError(obj.Name, "queues_per_port: %v", err)
		}

		t := tm.New(obj.Name, int(portCount), int(queuesPerPort))

		if raw, ok := obj.Attrs["multicast_groups"]; ok {
			groups, ok := raw.(map[string]any)
			if !ok {
				return nil, configError(obj.Name, "multicast_groups must be a mapping")
			}
			for idxStr, v := range groups {
				idx, err := toInt64(idxStr)
				if err != nil {
					return nil, configError(obj.Name, "multicast_groups: bad index %q: %v", idxStr, err)
				}
				entries, ok := v.([]any)
				if !ok {
					return nil, configError(obj.Name, "multicast_groups[%s] must be a list", idxStr)
				}
				group := make([]tm.PortQueue, 0, len(entries))
				for _, e := range entries {
					pair, ok := e.([]any)
					if !ok || len(pair) != 2 {
						return nil, configError(obj.Name, "multicast_groups[%s]: each entry must be a [port, queue] pair", idxStr)
					}
					port, err := toInt64(pair[0])
					if err != nil {
						return nil, configError(obj.Name, "multicast_groups[%s]: %v", idxStr, err)
					}
					queue, err := toInt64(pair[1])
					if err != nil {
						return nil, configError(obj.Name, "multicast_groups[%s]: %v", idxStr, err)
					}
					group = append(group, tm.PortQueue{Port: int(port), Queue: int(queue)})
				}
				t.SetMulticastGroup(idx, group)
			}
		}

		tms[obj.Name] = t
	}

	return tms, nil
}

package ir

import "github.com/packetpath/dataplane/match"

// ProcessTableInit populates tables from the table_initialization
// external object: a list of single-key maps {table_name: entry_desc}.
//
// Per the original's own comment on this exact decision, an entry_desc
// carrying match_values always builds a ternary entry — regardless of
// whether match_masks is also present — because a ternary entry with no
// masks already behaves as an exact match for every one of its fields;
// there is no need for a separate exact-entry code path at table-init
// time. An entry_desc with no match_values becomes the table's default
// entry. match_masks, action_params and priority are optional and
// default to nil/nil/0 respectively.
func ProcessTableInit(doc *Document, tables map[string]*match.Table) error {
	raw, ok := doc.External["table_initialization"]
	if !ok {
		return nil
	}

	list, ok := raw.([]any)
	if !ok {
		return configError("table_initialization", "must be a list")
	}

	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok || len(entry) != 1 {
			return configError("table_initialization", "each entry must be a single-key mapping")
		}

		for tableName, descRaw := range entry {
			table, ok := tables[tableName]
			if !ok {
				return configError("table_initialization", "references unknown table %q", tableName)
			}

			desc, err := toAttrMap(descRaw)
			if err != nil {
				return configError("table_initialization", "table %q: %v", tableName, err)
			}

			e, err := descriptionToEntry(desc)
			if err != nil {
				return configError("table_initialization", "table %q: %v", tableName, err)
			}
			table.AddEntry(e)
		}
	}

	return nil
}

func descriptionToEntry(desc map[string]any) (match.Entry, error) {
	actionRef, _ := desc["action"].(string)

	var actionParams map[string]any
	if raw, ok := desc["action_params"]; ok {
		m, err := toAttrMap(raw)
		if err != nil {
			return nil, err
		}
		actionParams = m
	}

	matchValuesRaw, hasMatch := desc["match_values"]
	if !hasMatch {
		return match.NewDefaultEntry(actionRef, actionParams), nil
	}

	matchValues, err := toInt64Map(matchValuesRaw)
	if err != nil {
		return nil, err
	}

	var matchMasks map[string]int64
	if raw, ok := desc["match_masks"]; ok {
		m, err := toInt64Map(raw)
		if err != nil {
			return nil, err
		}
		matchMasks = m
	}

	priority := 0
	if raw, ok := desc["priority"]; ok {
		v, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		priority = int(v)
	}

	return match.NewTernaryEntry(matchValues, matchMasks, actionRef, actionParams, priority), nil
}

func toInt64Map(v any) (map[string]int64, error) {
	m, err := toAttrMap(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(m))
	for k, raw := range m {
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}

package controlplane

// entryRequest is the JSON body of POST /api/v1/tables/{name}/entries. A
// request with no match_values installs a default (miss-path) entry,
// mirroring ir.descriptionToEntry's own rule: any match_values present
// always produces a ternary entry, with or without match_masks.
type entryRequest struct {
	MatchValues  map[string]int64 `json:"match_values,omitempty"`
	MatchMasks   map[string]int64 `json:"match_masks,omitempty"`
	Action       string           `json:"action"`
	ActionParams map[string]any   `json:"action_params,omitempty"`
	Priority     int              `json:"priority,omitempty"`
}

// entryResponse is returned on a successful entry add.
type entryResponse struct {
	ID string `json:"id"`
}

// clearRequest is the JSON body of POST /api/v1/tables/{name}/clear.
type clearRequest struct {
	ClearStats   bool `json:"clear_stats"`
	ClearDefault bool `json:"clear_default"`
}

// defaultEntryRequest is the JSON body of PUT /api/v1/tables/{name}/default.
type defaultEntryRequest struct {
	Action       string         `json:"action"`
	ActionParams map[string]any `json:"action_params,omitempty"`
}

// tableStatsResponse reports a table's current hit counters.
type tableStatsResponse struct {
	Name        string `json:"name"`
	ByteCount   int64  `json:"byte_count"`
	PacketCount int64  `json:"packet_count"`
}

package ir

import (
	"strconv"
	"strings"
)

// GraphEdge is one parsed line of the shared directed-graph text format
// used by both parser.implementation and pipeline.implementation
// attributes:
//
//	src -> dst [value=12, in_value_set=vfi_ids, action=forward];
//
// Attrs holds whichever of value/in_value_set/not_in_value_set/action
// were present on the line; callers interpret the subset relevant to
// their object type.
type GraphEdge struct {
	Src    string
	Dst    string
	Attrs  map[string]string
	HasVal bool
	Val    int64
}

// ParseGraph parses text into its edges. Lines with no "->" (the
// digraph header, the closing brace, comments, blank lines) are
// skipped.
func ParseGraph(text string) ([]GraphEdge, error) {
	var edges []GraphEdge
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, "->") {
			continue
		}

		arrow := strings.Index(line, "->")
		src := strings.TrimSpace(line[:arrow])
		rest := strings.TrimSpace(line[arrow+2:])

		dst := rest
		attrText := ""
		if br := strings.Index(rest, "["); br >= 0 {
			dst = strings.TrimSpace(rest[:br])
			end := strings.LastIndex(rest, "]")
			if end < br {
				return nil, configError("", "malformed graph edge attribute list: %q", line)
			}
			attrText = rest[br+1 : end]
		}
		dst = strings.TrimSuffix(strings.TrimSpace(dst), ";")
		dst = strings.TrimSpace(dst)

		attrs, err := parseEdgeAttrs(attrText)
		if err != nil {
			return nil, err
		}

		e := GraphEdge{Src: src, Dst: dst, Attrs: attrs}
		if raw, ok := attrs["value"]; ok {
			v, err := parseIntLiteral(raw)
			if err != nil {
				return nil, configError("", "edge %s -> %s: bad value %q: %v", src, dst, raw, err)
			}
			e.HasVal = true
			e.Val = v
		}
		edges = append(edges, e)
	}
	return edges, nil
}

func parseEdgeAttrs(text string) (map[string]string, error) {
	attrs := make(map[string]string)
	text = strings.TrimSpace(text)
	if text == "" {
		return attrs, nil
	}
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.Index(part, "=")
		if eq < 0 {
			return nil, configError("", "malformed edge attribute %q", part)
		}
		key := strings.TrimSpace(part[:eq])
		val := strings.TrimSpace(part[eq+1:])
		attrs[key] = unquote(val)
	}
	return attrs, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// parseIntLiteral parses a bare or quoted integer literal, honoring a
// 0x/0 prefix the way strconv.ParseInt(s, 0, 64) does — the Go
// equivalent of Python's int(val_str, 0).
func parseIntLiteral(s string) (int64, error) {
	return strconv.ParseInt(unquote(strings.TrimSpace(s)), 0, 64)
}

package ir

import (
	"github.com/packetpath/dataplane/field"
	"github.com/packetpath/dataplane/header"
)

// BuildHeaders builds a header.Descriptor for every header-typed object
// in doc, partitioned into two maps: wire headers, which the parser
// extracts from the packet buffer itself, and metadata headers, which
// engine.NewSwitch zero-initializes per packet outside the wire.
//
// The original Python IriInstance populates its own metadata dict
// (self.metadata) from a source this package's original_source excerpt
// never shows fully wired up — its only populated caller passes
// self.metadata straight into ParsedPacket. In the absence of a
// recovered mechanism, metadata membership here is declared explicitly:
// a header object opts in with "metadata: true", matching the sole
// metadata header every example configuration actually needs
// (intrinsic_metadata).
func BuildHeaders(doc *Document) (wire map[string]*header.Descriptor, metadata map[string]*header.Descriptor, err error) {
	wire = make(map[string]*header.Descriptor)
	metadata = make(map[string]*header.Descriptor)

	for _, obj := range doc.ObjectsOfType("header") {
		desc, isMetadata, err := buildHeaderDescriptor(obj)
		if err != nil {
			return nil, nil, err
		}
		if isMetadata {
			metadata[obj.Name] = desc
		} else {
			wire[obj.Name] = desc
		}
	}
	return wire, metadata, nil
}

func buildHeaderDescriptor(obj *ObjectNode) (*header.Descriptor, bool, error) {
	desc := &header.Descriptor{Name: obj.Name}

	if raw, ok := obj.Attrs["fields"]; ok {
		fields, ok := raw.([]any)
		if !ok {
			return nil, false, configError(obj.Name, "fields must be a list")
		}
		for _, f := range fields {
			entry, ok := f.(map[string]any)
			if !ok || len(entry) != 1 {
				return nil, false, configError(obj.Name, "each fields entry must be a single-key mapping")
			}
			for name, attrs := range entry {
				if err := validateFieldAttrs(obj.Name, name, attrs); err != nil {
					return nil, false, err
				}
				desc.Fields = append(desc.Fields, header.FieldDescriptor{Name: name, Attrs: attrs})
			}
		}
	}

	return desc, truthy(obj.Attrs["metadata"]), nil
}

// validateFieldAttrs runs field.Width's expression validator over a
// string width expression, surfacing malformed syntax (unbalanced
// parens, illegal characters) at construction time rather than at first
// packet parse. An int or map[string]any attrs value needs no
// validation here; Width itself rejects anything else when the header
// is first parsed.
func validateFieldAttrs(headerName, fieldName string, attrs any) error {
	expr, ok := attrs.(string)
	if !ok {
		return nil
	}
	if err := field.ValidateExpr(expr); err != nil {
		return configError(headerName, "field %s: %v", fieldName, err)
	}
	return nil
}

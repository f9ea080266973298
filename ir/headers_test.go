package ir

import "testing"

func TestBuildHeadersPartitionsMetadata(t *testing.T) {
	doc := mustLoad(t, `
air_types: [header]
air_attributes:
  header: [fields, metadata]
ethernet:
  type: header
  fields:
    - ethertype: 16
intrinsic_metadata:
  type: header
  metadata: true
  fields:
    - ingress_port: 32
`)

	wire, metadata, err := BuildHeaders(doc)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := wire["ethernet"]; !ok {
		t.Fatal("expected ethernet in the wire header map")
	}
	if _, ok := wire["intrinsic_metadata"]; ok {
		t.Fatal("expected intrinsic_metadata to be excluded from the wire header map")
	}
	if _, ok := metadata["intrinsic_metadata"]; !ok {
		t.Fatal("expected intrinsic_metadata in the metadata header map")
	}
}

func TestBuildHeadersRejectsMalformedWidthExpression(t *testing.T) {
	doc := mustLoad(t, `
air_types: [header]
air_attributes:
  header: [fields]
bad:
  type: header
  fields:
    - len: "(4 * )"
`)

	if _, _, err := BuildHeaders(doc); err == nil {
		t.Fatal("expected an error for a malformed width expression")
	}
}

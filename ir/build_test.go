package ir

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeDataplane struct {
	toPoll chan []byte
	sent   []sentPacket
}

type sentPacket struct {
	port int
	buf  []byte
}

func newFakeDataplane() *fakeDataplane {
	return &fakeDataplane{toPoll: make(chan []byte, 4)}
}

func (f *fakeDataplane) Poll(timeout time.Duration) (int, []byte, int64, bool) {
	select {
	case pkt := <-f.toPoll:
		return 0, pkt, 0, true
	case <-time.After(timeout):
		return 0, nil, 0, false
	}
}

func (f *fakeDataplane) Send(port int, pkt []byte) {
	f.sent = append(f.sent, sentPacket{port: port, buf: pkt})
}

func (f *fakeDataplane) Kill() {}

const endToEndConfig = `
air_types: [header, parser, parse_state, table, action, pipeline, traffic_manager, layout]
air_attributes:
  header: [fields, metadata]
  parser: [start_state, implementation]
  parse_state: [extracts, select_value]
  action: [params, implementation]
  pipeline: [implementation]
  traffic_manager: [port_count, queues_per_port, multicast_groups]
  layout: [implementation]
air_processors: [parser, pipeline, traffic_manager]

ethernet:
  type: header
  fields:
    - dst_mac: 48
    - src_mac: 48
    - ethertype: 16

intrinsic_metadata:
  type: header
  metadata: true
  fields:
    - ingress_port: 32
    - egress_port: 32
    - egress_specification: 32

my_parser:
  type: parser
  start_state: start
  implementation: "digraph my_parser {\n}"

start:
  type: parse_state
  extracts: [ethernet]

fwd_table:
  type: table

forward:
  type: action
  implementation: "add_to_field(intrinsic_metadata.egress_specification, 0);"

my_pipeline:
  type: pipeline
  implementation: "digraph my_pipeline {\n  fwd_table -> exit_control_flow [action=forward];\n}"

my_tm:
  type: traffic_manager
  port_count: 1
  queues_per_port: 1

layout:
  type: layout
  implementation: [my_parser, my_pipeline, my_tm]

table_initialization:
  - fwd_table: {action: forward}
`

// TestBuildEndToEndEthernetPassThrough mirrors spec scenario 1: a packet
// with no table match beyond the default entry is forwarded unmodified
// to port 0.
func TestBuildEndToEndEthernetPassThrough(t *testing.T) {
	doc, err := LoadString(endToEndConfig, nil)
	if err != nil {
		t.Fatal(err)
	}

	dp := newFakeDataplane()
	result, err := Build(doc, "sw0", dp, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	sw := result.Switch

	sw.Enable()
	sw.Start()
	defer sw.Kill()

	in := make([]byte, 100)
	for i := range in {
		in[i] = byte(i)
	}
	dp.toPoll <- in

	deadline := time.After(time.Second)
	for len(dp.sent) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the packet to reach the transmit stage")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if dp.sent[0].port != 0 {
		t.Fatalf("sent to port %d, want 0", dp.sent[0].port)
	}
	if string(dp.sent[0].buf) != string(in) {
		t.Fatal("expected serialized packet to equal the original input bytes")
	}
}

func TestBuildRejectsMissingLayout(t *testing.T) {
	doc, err := LoadString(`
air_types: [header]
`, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Build(doc, "sw0", newFakeDataplane(), nil); err == nil {
		t.Fatal("expected an error for a config with no layout object")
	}
}

func TestBuildRejectsUnknownLayoutReference(t *testing.T) {
	doc, err := LoadString(`
air_types: [layout]
air_attributes:
  layout: [implementation]
layout:
  type: layout
  implementation: [does_not_exist]
`, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Build(doc, "sw0", newFakeDataplane(), nil); err == nil {
		t.Fatal("expected an error for a layout referencing an unknown processor")
	}
}

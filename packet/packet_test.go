package packet

import (
	"bytes"
	"testing"

	"github.com/packetpath/dataplane/header"
)

func ethernetDescriptor() *header.Descriptor {
	return &header.Descriptor{
		Name: "ethernet",
		Fields: []header.FieldDescriptor{
			{Name: "dst_mac", Attrs: 48},
			{Name: "src_mac", Attrs: 48},
			{Name: "ethertype", Attrs: 16},
		},
	}
}

func ipv4Descriptor() *header.Descriptor {
	fields := []header.FieldDescriptor{
		{Name: "version", Attrs: 4},
		{Name: "ihl", Attrs: 4},
		{Name: "tos", Attrs: 8},
		{Name: "total_len", Attrs: 16},
		{Name: "id", Attrs: 16},
		{Name: "flags_frag", Attrs: 16},
		{Name: "ttl", Attrs: 8},
		{Name: "proto", Attrs: 8},
		{Name: "checksum", Attrs: 16},
		{Name: "src", Attrs: 32},
		{Name: "dst", Attrs: 32},
	}
	return &header.Descriptor{Name: "ipv4", Fields: fields}
}

func hundredByteBuffer() []byte {
	buf := make([]byte, 100)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestNewParsedPacketInitialState(t *testing.T) {
	p := New(hundredByteBuffer(), nil)
	if p.PayloadLength() != 100 {
		t.Fatalf("payload length = %d, want 100", p.PayloadLength())
	}
	if p.PayloadOffset() != 0 {
		t.Fatalf("payload offset = %d, want 0", p.PayloadOffset())
	}
	if p.HeaderLength() != 0 {
		t.Fatalf("header length = %d, want 0", p.HeaderLength())
	}
}

func TestParseHeaderAdvancesOffsets(t *testing.T) {
	p := New(hundredByteBuffer(), nil)
	if err := p.ParseHeader("ethernet", ethernetDescriptor()); err != nil {
		t.Fatal(err)
	}

	if p.PayloadLength() != 86 {
		t.Fatalf("payload length = %d, want 86", p.PayloadLength())
	}
	if p.PayloadOffset() != 14 {
		t.Fatalf("payload offset = %d, want 14", p.PayloadOffset())
	}
	if p.HeaderLength() != 14 {
		t.Fatalf("header length = %d, want 14", p.HeaderLength())
	}
}

func TestGetFieldDottedReference(t *testing.T) {
	p := New(hundredByteBuffer(), nil)
	p.ParseHeader("ethernet", ethernetDescriptor())

	v, ok := p.GetField("ethernet.ethertype")
	if !ok || v != int64(0x0C0D) {
		t.Fatalf("ethertype = %v, %v; want 0xc0d, true", v, ok)
	}
	v, ok = p.GetField("ethernet.dst_mac")
	if !ok || v != int64(0x000102030405) {
		t.Fatalf("dst_mac = %v, %v", v, ok)
	}
	v, ok = p.GetField("ethernet.src_mac")
	if !ok || v != int64(0x060708090A0B) {
		t.Fatalf("src_mac = %v, %v", v, ok)
	}
}

func TestGetFieldUnparsedReturnsFalse(t *testing.T) {
	p := New(hundredByteBuffer(), nil)
	if _, ok := p.GetField("ipv4.version"); ok {
		t.Fatal("expected unparsed header field lookup to fail")
	}
	if _, ok := p.SetField("ipv4.version", 3); ok {
		t.Fatal("expected unparsed header field set to fail")
	}
}

func TestModifyThenSerialize(t *testing.T) {
	buf := hundredByteBuffer()
	p := New(buf, nil)
	p.ParseHeader("ethernet", ethernetDescriptor())

	if _, ok := p.SetField("ethernet.dst_mac", int64(0xA0A1A2A3A4A5)); !ok {
		t.Fatal("set dst_mac failed")
	}

	out := p.Serialize()
	want := []byte{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5}
	if !bytes.Equal(out[0:6], want) {
		t.Fatalf("dst_mac bytes = %x, want %x", out[0:6], want)
	}
	if !bytes.Equal(out[6:14], buf[6:14]) {
		t.Fatalf("src_mac+ethertype bytes changed unexpectedly")
	}
	if !bytes.Equal(out[14:100], buf[14:100]) {
		t.Fatal("payload bytes changed unexpectedly")
	}
}

func TestVLANTransitionHeaderLength(t *testing.T) {
	buf := hundredByteBuffer()
	buf[12], buf[13] = 0x81, 0x00

	vlanDesc := &header.Descriptor{
		Name: "vlan_tag_outer",
		Fields: []header.FieldDescriptor{
			{Name: "pcp", Attrs: 3},
			{Name: "dei", Attrs: 1},
			{Name: "vid", Attrs: 12},
			{Name: "ethertype", Attrs: 16},
		},
	}

	p := New(buf, nil)
	p.ParseHeader("ethernet", ethernetDescriptor())
	p.ParseHeader("vlan_tag_outer", vlanDesc)

	if !p.HeaderValid("ethernet") || !p.HeaderValid("vlan_tag_outer") {
		t.Fatal("expected both ethernet and vlan_tag_outer to be valid")
	}
	if p.HeaderLength() != 18 {
		t.Fatalf("header length = %d, want 18", p.HeaderLength())
	}
}

func TestAddHeaderAfterAndRemove(t *testing.T) {
	p := New(hundredByteBuffer(), nil)
	p.ParseHeader("ethernet", ethernetDescriptor())

	if _, err := p.AddHeaderAfter("ethernet", ipv4Descriptor(), "ethernet"); err == nil {
		t.Fatal("expected adding an already-present header to fail")
	}

	n, err := p.AddHeaderAfter("ipv4", ipv4Descriptor(), "ethernet")
	if err != nil {
		t.Fatal(err)
	}
	if n != 20 {
		t.Fatalf("ipv4 header length = %d, want 20", n)
	}

	if p.PayloadLength() != 86 {
		t.Fatalf("payload length changed unexpectedly: %d", p.PayloadLength())
	}
	if p.HeaderLength() != 34 {
		t.Fatalf("header length = %d, want 34", p.HeaderLength())
	}

	serialized := p.Serialize()
	// The ipv4 header was inserted zeroed immediately after ethernet.
	if !bytes.Equal(serialized[14:34], make([]byte, 20)) {
		t.Fatal("inserted header bytes should be zero")
	}

	removed, ok := p.RemoveHeader("ethernet")
	if !ok || removed != 14 {
		t.Fatalf("remove ethernet: got (%d, %v), want (14, true)", removed, ok)
	}
	if p.HeaderLength() != 20 {
		t.Fatalf("header length after remove = %d, want 20", p.HeaderLength())
	}

	if _, ok := p.RemoveHeader("ethernet"); ok {
		t.Fatal("expected second remove of ethernet to fail")
	}
}

func TestReplicateIsIndependent(t *testing.T) {
	p := New(hundredByteBuffer(), nil)
	repl := p.Replicate()

	if repl.ID() == p.ID() {
		t.Fatal("replica must have a distinct id")
	}
	parentID, ok := repl.ParentID()
	if !ok || parentID != p.ID() {
		t.Fatalf("replica parent id = %v, %v; want %d, true", parentID, ok, p.ID())
	}

	p.ParseHeader("ethernet", ethernetDescriptor())
	if repl.HeaderValid("ethernet") {
		t.Fatal("mutating original after replication should not affect replica")
	}
	if repl.HeaderLength() != 0 {
		t.Fatalf("replica header length = %d, want 0", repl.HeaderLength())
	}
}

func TestPacketIDsAreUnique(t *testing.T) {
	a := New(hundredByteBuffer(), nil)
	b := New(hundredByteBuffer(), nil)
	if a.ID() == b.ID() {
		t.Fatal("expected distinct packet ids")
	}
}

func TestSerializeUnmodifiedRoundTrips(t *testing.T) {
	buf := hundredByteBuffer()
	p := New(buf, nil)
	p.ParseHeader("ethernet", ethernetDescriptor())

	out := p.Serialize()
	if !bytes.Equal(out, buf) {
		t.Fatal("serialize of unmodified packet should equal original buffer")
	}
}

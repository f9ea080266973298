package header

import (
	"bytes"
	"testing"
)

func ethernetDescriptor() *Descriptor {
	return &Descriptor{
		Name: "ethernet",
		Fields: []FieldDescriptor{
			{Name: "dst_mac", Attrs: 48},
			{Name: "src_mac", Attrs: 48},
			{Name: "ethertype", Attrs: 16},
		},
	}
}

func testBuffer() []byte {
	buf := make([]byte, 100)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestParseEthernetFields(t *testing.T) {
	buf := testBuffer()
	h, err := New("ethernet", ethernetDescriptor(), buf, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	if h.Length() != 14 {
		t.Fatalf("length = %d, want 14", h.Length())
	}

	if got := h.GetField("ethertype"); got != int64(0x0C0D) {
		t.Fatalf("ethertype = %#x, want 0xc0d", got)
	}
	if got := h.GetField("dst_mac"); got != int64(0x000102030405) {
		t.Fatalf("dst_mac = %#x", got)
	}
	if got := h.GetField("src_mac"); got != int64(0x060708090A0B) {
		t.Fatalf("src_mac = %#x", got)
	}
}

func TestGetFieldAbsentReturnsZero(t *testing.T) {
	h, _ := New("ethernet", ethernetDescriptor(), testBuffer(), 0, 0)
	if got := h.GetField("nonexistent"); got != 0 {
		t.Fatalf("got %v, want 0", got)
	}
}

func TestSetFieldRejectsAbsentAndBadType(t *testing.T) {
	h, _ := New("ethernet", ethernetDescriptor(), testBuffer(), 0, 0)

	if _, ok := h.SetField("nonexistent", 1); ok {
		t.Fatal("expected SetField on absent field to fail")
	}
	if _, ok := h.SetField("ethertype", 3.14); ok {
		t.Fatal("expected SetField with float value to fail")
	}
}

func TestSerializeUnmodifiedIsVerbatim(t *testing.T) {
	buf := testBuffer()
	h, _ := New("ethernet", ethernetDescriptor(), buf, 0, 0)

	got := h.Serialize()
	if !bytes.Equal(got, buf[0:14]) {
		t.Fatalf("serialize mismatch: got %x, want %x", got, buf[0:14])
	}
}

func TestSetFieldThenSerialize(t *testing.T) {
	buf := testBuffer()
	h, _ := New("ethernet", ethernetDescriptor(), buf, 0, 0)

	if _, ok := h.SetField("dst_mac", int64(0xA0A1A2A3A4A5)); !ok {
		t.Fatal("set dst_mac failed")
	}
	if !h.Modified() {
		t.Fatal("expected header to be marked modified")
	}

	got := h.Serialize()
	want := []byte{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5, 6, 7, 8, 9, 10, 11, 12, 13}
	if !bytes.Equal(got, want) {
		t.Fatalf("serialize mismatch: got %x, want %x", got, want)
	}
}

func TestNewZeroedHeader(t *testing.T) {
	h, err := NewZeroed("ethernet", ethernetDescriptor())
	if err != nil {
		t.Fatal(err)
	}
	if h.Length() != 14 {
		t.Fatalf("length = %d, want 14", h.Length())
	}
	if got := h.GetField("ethertype"); got != int64(0) {
		t.Fatalf("ethertype = %v, want 0", got)
	}
	if !bytes.Equal(h.Serialize(), make([]byte, 14)) {
		t.Fatal("zeroed header should serialize to all zero bytes")
	}
}

func TestOpaqueHeader(t *testing.T) {
	buf := testBuffer()
	h := NewOpaque("opaque_block", buf, 20, 6)
	if h.Length() != 6 {
		t.Fatalf("length = %d, want 6", h.Length())
	}
	if !bytes.Equal(h.Serialize(), buf[20:26]) {
		t.Fatal("opaque header should serialize the raw byte range")
	}
}

func TestFieldWidthExpression(t *testing.T) {
	desc := &Descriptor{
		Name: "variable",
		Fields: []FieldDescriptor{
			{Name: "len_bits", Attrs: 8},
			{Name: "payload", Attrs: "len_bits"},
		},
	}
	buf := []byte{16, 0xff, 0xff, 0xff}
	h, err := New("variable", desc, buf, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if h.Length() != 3 {
		t.Fatalf("length = %d, want 3 (1 + 16 bits)", h.Length())
	}
}

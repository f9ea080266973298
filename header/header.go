// Package header implements HeaderInstance: a header descriptor bound to a
// byte range, with live field values that can be read, mutated and
// re-serialized.
package header

import (
	"github.com/packetpath/dataplane/field"
)

// FieldDescriptor names one field of a header and carries its width
// source: a constant bit count, an attribute record with a "width" key,
// or an arithmetic expression resolved against earlier sibling values.
type FieldDescriptor struct {
	Name  string
	Attrs any
}

// Descriptor is the ordered field layout of a header. A Descriptor with
// no Fields describes an opaque header: a block of bytes whose length is
// supplied externally rather than derived from field widths.
type Descriptor struct {
	Name   string
	Fields []FieldDescriptor
}

// Opaque reports whether the descriptor carries no fields.
func (d *Descriptor) Opaque() bool {
	return d == nil || len(d.Fields) == 0
}

type fieldValue struct {
	name      string
	width     int
	bitOffset int
	scalar    uint64
	raw       []byte
}

// zeroBuffer backs freshly-constructed (inserted) header instances, in
// place of the original packet's buffer. It is never written to; Instance
// only ever reads from it before a field is explicitly set.
var zeroBuffer = make([]byte, 16*1024)

// Instance is a header descriptor bound to a source byte buffer and
// offset, with an ordered, live field value set.
type Instance struct {
	name   string
	desc   *Descriptor
	buf    []byte
	offset int

	fields   []fieldValue
	index    map[string]int
	modified bool

	length    int
	bitLength int
}

// New parses desc's fields out of buf starting at offset, resolving each
// field's width against the integer values of its already-parsed
// siblings. length is the externally-known length of the header; it is
// used only for an opaque descriptor and is ignored otherwise.
func New(name string, desc *Descriptor, buf []byte, offset int, length int) (*Instance, error) {
	h := &Instance{name: name, desc: desc, buf: buf, offset: offset}

	if desc.Opaque() {
		h.length = length
		return h, nil
	}

	h.index = make(map[string]int, len(desc.Fields))
	values := make(map[string]int64, len(desc.Fields))
	bitOffset := 0

	for _, fd := range desc.Fields {
		width, err := field.Width(fd.Name, fd.Attrs, values)
		if err != nil {
			return nil, err
		}

		scalar, raw := field.Extract(buf, offset, bitOffset, width)

		h.index[fd.Name] = len(h.fields)
		h.fields = append(h.fields, fieldValue{
			name:      fd.Name,
			width:     width,
			bitOffset: bitOffset,
			scalar:    scalar,
			raw:       raw,
		})

		if raw == nil {
			values[fd.Name] = int64(scalar)
		}

		bitOffset += width
	}

	h.bitLength = bitOffset
	h.length = (bitOffset + 7) / 8
	return h, nil
}

// NewOpaque builds a header instance with no field structure: an
// uninterpreted block of bytes whose length is supplied by the caller.
func NewOpaque(name string, buf []byte, offset, length int) *Instance {
	h, _ := New(name, nil, buf, offset, length)
	return h
}

// NewZeroed builds a freshly-zeroed header instance of desc, suitable for
// inserting into a packet via add_header_before/add_header_after. Its
// fields all parse to zero until explicitly set.
func NewZeroed(name string, desc *Descriptor) (*Instance, error) {
	return New(name, desc, zeroBuffer, 0, 0)
}

// Name returns the header instance's name.
func (h *Instance) Name() string { return h.name }

// Length returns the header's length in bytes: ceil(bitLength/8).
func (h *Instance) Length() int { return h.length }

// BitLength returns the sum of the header's field widths, in bits.
func (h *Instance) BitLength() int { return h.bitLength }

// Modified reports whether any field has been written via SetField since
// construction.
func (h *Instance) Modified() bool { return h.modified }

// GetField returns the current value of name: an int64 for scalar fields,
// a []byte for fields wider than 64 bits, or 0 if name is not a field of
// this header. Lookup never fails, to keep action evaluation non-failing.
func (h *Instance) GetField(name string) any {
	idx, ok := h.index[name]
	if !ok {
		return 0
	}
	fv := h.fields[idx]
	if fv.raw != nil {
		return fv.raw
	}
	return int64(fv.scalar)
}

// SetField stores value into field name, marking the header modified.
// value must be an integer type or a []byte; anything else, or a name
// absent from this header, is rejected with ok=false.
func (h *Instance) SetField(name string, value any) (result any, ok bool) {
	idx, present := h.index[name]
	if !present {
		return nil, false
	}

	fv := &h.fields[idx]
	switch v := value.(type) {
	case []byte:
		fv.raw = v
		fv.scalar = 0
		result = v
	case int:
		fv.scalar = uint64(v)
		fv.raw = nil
		result = int64(v)
	case int64:
		fv.scalar = uint64(v)
		fv.raw = nil
		result = v
	case uint64:
		fv.scalar = v
		fv.raw = nil
		result = v
	default:
		return nil, false
	}

	h.modified = true
	return result, true
}

// Clone returns an independent deep copy of h: same source buffer and
// offset (shared, read-only), but its own field value slice so that
// mutating the clone never affects h.
func (h *Instance) Clone() *Instance {
	clone := &Instance{
		name:      h.name,
		desc:      h.desc,
		buf:       h.buf,
		offset:    h.offset,
		modified:  h.modified,
		length:    h.length,
		bitLength: h.bitLength,
	}

	if h.index != nil {
		clone.index = make(map[string]int, len(h.index))
		for k, v := range h.index {
			clone.index[k] = v
		}
	}

	clone.fields = make([]fieldValue, len(h.fields))
	for i, fv := range h.fields {
		clone.fields[i] = fv
		if fv.raw != nil {
			clone.fields[i].raw = append([]byte(nil), fv.raw...)
		}
	}

	return clone
}

// Serialize returns the byte representation of this header. If no field
// has been modified, it returns the original byte range verbatim;
// otherwise it re-emits every field in order through the field codec.
func (h *Instance) Serialize() []byte {
	if !h.modified {
		out := make([]byte, h.length)
		copy(out, h.buf[h.offset:h.offset+h.length])
		return out
	}

	out := make([]byte, h.length)
	for _, fv := range h.fields {
		field.Insert(out, fv.bitOffset, fv.width, fv.scalar, fv.raw)
	}
	return out
}

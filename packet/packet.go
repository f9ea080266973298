// Package packet implements ParsedPacket, the mutable data structure that
// ties header parsing, matching and actions together as a packet moves
// through the processor chain.
package packet

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/packetpath/dataplane/header"
)

// nextID is the process-wide monotonically increasing packet id counter.
var nextID int64

func allocID() int64 {
	return atomic.AddInt64(&nextID, 1) - 1
}

// ParsedPacket is the mutable state object flowing through the processor
// chain: an insertion-ordered map of parsed headers (the wire order), a
// metadata namespace that is never serialized, and a window onto the
// unparsed payload of the original, read-only buffer.
type ParsedPacket struct {
	id       int64
	parentID int64
	hasParent bool

	original []byte

	headers  *orderedHeaders
	metadata map[string]*header.Instance

	headerLength  int
	payloadOffset int
	payloadLength int

	parseError error
}

// New creates a ParsedPacket over original, with metadata headers
// initialized (empty, zeroed) from metadataDescs.
func New(original []byte, metadataDescs map[string]*header.Descriptor) *ParsedPacket {
	p := &ParsedPacket{
		id:            allocID(),
		original:      original,
		headers:       newOrderedHeaders(),
		metadata:      make(map[string]*header.Instance, len(metadataDescs)),
		payloadLength: len(original),
	}

	for name, desc := range metadataDescs {
		md, err := header.NewZeroed(name, desc)
		if err != nil {
			continue
		}
		p.metadata[name] = md
	}

	return p
}

// ID returns the packet's process-wide unique id.
func (p *ParsedPacket) ID() int64 { return p.id }

// ParentID returns the id of the packet this one was replicated from,
// and whether it has one.
func (p *ParsedPacket) ParentID() (int64, bool) { return p.parentID, p.hasParent }

// HeaderLength returns the sum of all parsed header instance lengths.
func (p *ParsedPacket) HeaderLength() int { return p.headerLength }

// PayloadOffset returns the offset of the unparsed payload window into
// the original buffer.
func (p *ParsedPacket) PayloadOffset() int { return p.payloadOffset }

// PayloadLength returns the length of the unparsed payload window.
func (p *ParsedPacket) PayloadLength() int { return p.payloadLength }

// ParseError returns the parse-error token set on this packet, if any.
func (p *ParsedPacket) ParseError() error { return p.parseError }

// SetParseError records a parse error token on the packet.
func (p *ParsedPacket) SetParseError(err error) { p.parseError = err }

// HeaderValid reports whether name is a currently-valid header of p.
func (p *ParsedPacket) HeaderValid(name string) bool {
	return p.headers.has(name)
}

// Header returns the header instance named name, if present.
func (p *ParsedPacket) Header(name string) (*header.Instance, bool) {
	return p.headers.get(name)
}

// ParseHeader extracts a header named name from the current payload
// offset, using desc to resolve its fields, appends it to the ordered
// header map, and advances the payload window past it.
func (p *ParsedPacket) ParseHeader(name string, desc *header.Descriptor) error {
	h, err := header.New(name, desc, p.original, p.payloadOffset, 0)
	if err != nil {
		return err
	}

	p.headers.append(name, h)
	p.payloadOffset += h.Length()
	p.payloadLength -= h.Length()
	p.headerLength += h.Length()
	return nil
}

// SkipBytes consumes n bytes from the current payload into an opaque
// header stored under name, for data this IR doesn't describe further. This is the
// Go equivalent of the original implementation's parse_skip_byte_block.
func (p *ParsedPacket) SkipBytes(name string, n int) (*header.Instance, error) {
	if n > p.payloadLength {
		return nil, fmt.Errorf("packet: not enough payload bytes to skip %d", n)
	}

	h := header.NewOpaque(name, p.original, p.payloadOffset, n)
	p.headers.append(name, h)
	p.payloadOffset += n
	p.payloadLength -= n
	p.headerLength += n
	return h, nil
}

// splitFieldRef splits "header.field" into its two components.
func splitFieldRef(ref string) (string, string, bool) {
	i := strings.IndexByte(ref, '.')
	if i < 0 {
		return "", "", false
	}
	return ref[:i], ref[i+1:], true
}

// GetField looks up a dotted "header.field" reference, searching headers
// then metadata. A reference whose header is absent returns (nil, false)
// without error, so action evaluation can tolerate missing headers; an
// absent field of a present header reads as (0, true).
func (p *ParsedPacket) GetField(ref string) (any, bool) {
	hdrName, fldName, ok := splitFieldRef(ref)
	if !ok {
		return nil, false
	}

	if h, ok := p.headers.get(hdrName); ok {
		return h.GetField(fldName), true
	}
	if h, ok := p.metadata[hdrName]; ok {
		return h.GetField(fldName), true
	}
	return nil, false
}

// SetField sets a dotted "header.field" reference, searching headers then
// metadata. Returns (nil, false) if the reference does not resolve to a
// valid field.
func (p *ParsedPacket) SetField(ref string, value any) (any, bool) {
	hdrName, fldName, ok := splitFieldRef(ref)
	if !ok {
		return nil, false
	}

	if h, ok := p.headers.get(hdrName); ok {
		return h.SetField(fldName, value)
	}
	if h, ok := p.metadata[hdrName]; ok {
		return h.SetField(fldName, value)
	}
	return nil, false
}

// AddHeaderBefore inserts a freshly-zeroed header instance of desc
// immediately before anchor in the ordered header map. It fails if anchor
// is absent or name is already present.
func (p *ParsedPacket) AddHeaderBefore(name string, desc *header.Descriptor, anchor string) (int, error) {
	return p.addHeader(name, desc, anchor, p.headers.insertBefore)
}

// AddHeaderAfter inserts a freshly-zeroed header instance of desc
// immediately after anchor in the ordered header map. It fails if anchor
// is absent or name is already present.
func (p *ParsedPacket) AddHeaderAfter(name string, desc *header.Descriptor, anchor string) (int, error) {
	return p.addHeader(name, desc, anchor, p.headers.insertAfter)
}

func (p *ParsedPacket) addHeader(name string, desc *header.Descriptor, anchor string,
	insert func(anchor, name string, h *header.Instance) bool) (int, error) {

	if p.headers.has(name) {
		return 0, fmt.Errorf("packet: header %q already present", name)
	}
	if !p.headers.has(anchor) {
		return 0, fmt.Errorf("packet: anchor header %q not present", anchor)
	}

	h, err := header.NewZeroed(name, desc)
	if err != nil {
		return 0, err
	}

	insert(anchor, name, h)
	p.headerLength += h.Length()
	return h.Length(), nil
}

// LastHeaderName returns the name of the last header in wire order (not
// necessarily the most recently added one), and whether the packet has any headers at all. Used by the
// add_header primitive to anchor a new header after the existing stack.
func (p *ParsedPacket) LastHeaderName() (string, bool) {
	if len(p.headers.names) == 0 {
		return "", false
	}
	return p.headers.names[len(p.headers.names)-1], true
}

// RemoveHeader removes name from the ordered header map and returns its
// length. It returns (0, false) if name was not present.
func (p *ParsedPacket) RemoveHeader(name string) (int, bool) {
	h, ok := p.headers.get(name)
	if !ok {
		return 0, false
	}
	p.headers.remove(name)
	p.headerLength -= h.Length()
	return h.Length(), true
}

// Serialize concatenates every header's serialization in insertion order,
// then appends the payload window from the original buffer. This is the
// wire order of the packet.
func (p *ParsedPacket) Serialize() []byte {
	out := make([]byte, 0, p.headerLength+p.payloadLength)
	for _, h := range p.headers.ordered() {
		out = append(out, h.Serialize()...)
	}
	out = append(out, p.original[p.payloadOffset:p.payloadOffset+p.payloadLength]...)
	return out
}

// Replicate produces an independent copy of p for multicast fan-out: a
// fresh id, the source packet's id recorded as parent, headers and
// metadata deep-copied, and the original buffer shared read-only.
func (p *ParsedPacket) Replicate() *ParsedPacket {
	clone := &ParsedPacket{
		id:            allocID(),
		parentID:      p.id,
		hasParent:     true,
		original:      p.original,
		headers:       p.headers.clone(),
		metadata:      make(map[string]*header.Instance, len(p.metadata)),
		headerLength:  p.headerLength,
		payloadOffset: p.payloadOffset,
		payloadLength: p.payloadLength,
		parseError:    p.parseError,
	}

	for k, v := range p.metadata {
		clone.metadata[k] = v.Clone()
	}

	return clone
}

package packet

import "github.com/packetpath/dataplane/header"

// orderedHeaders is an insertion-ordered name -> *header.Instance map.
// Insertion order is preserved across adds and is the packet's wire
// order; it is the same ListDict role the original implementation used.
type orderedHeaders struct {
	names []string
	byKey map[string]*header.Instance
}

func newOrderedHeaders() *orderedHeaders {
	return &orderedHeaders{byKey: make(map[string]*header.Instance)}
}

func (o *orderedHeaders) get(name string) (*header.Instance, bool) {
	h, ok := o.byKey[name]
	return h, ok
}

func (o *orderedHeaders) has(name string) bool {
	_, ok := o.byKey[name]
	return ok
}

func (o *orderedHeaders) append(name string, h *header.Instance) {
	o.names = append(o.names, name)
	o.byKey[name] = h
}

func (o *orderedHeaders) insertAt(idx int, name string, h *header.Instance) {
	o.names = append(o.names, "")
	copy(o.names[idx+1:], o.names[idx:])
	o.names[idx] = name
	o.byKey[name] = h
}

func (o *orderedHeaders) indexOf(name string) int {
	for i, n := range o.names {
		if n == name {
			return i
		}
	}
	return -1
}

func (o *orderedHeaders) insertBefore(anchor, name string, h *header.Instance) bool {
	idx := o.indexOf(anchor)
	if idx < 0 {
		return false
	}
	o.insertAt(idx, name, h)
	return true
}

func (o *orderedHeaders) insertAfter(anchor, name string, h *header.Instance) bool {
	idx := o.indexOf(anchor)
	if idx < 0 {
		return false
	}
	o.insertAt(idx+1, name, h)
	return true
}

func (o *orderedHeaders) remove(name string) bool {
	idx := o.indexOf(name)
	if idx < 0 {
		return false
	}
	o.names = append(o.names[:idx], o.names[idx+1:]...)
	delete(o.byKey, name)
	return true
}

func (o *orderedHeaders) ordered() []*header.Instance {
	out := make([]*header.Instance, len(o.names))
	for i, n := range o.names {
		out[i] = o.byKey[n]
	}
	return out
}

// clone returns an independent copy: the name order is copied and every
// header.Instance is deep-copied so the clone can be mutated without
// affecting o.
func (o *orderedHeaders) clone() *orderedHeaders {
	c := newOrderedHeaders()
	c.names = append([]string(nil), o.names...)
	for k, v := range o.byKey {
		c.byKey[k] = v.Clone()
	}
	return c
}

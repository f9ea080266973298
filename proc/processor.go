// Package proc defines the uniform Processor contract shared by every
// stage of the engine's packet chain: parsers, pipelines, the traffic
// manager and the final transmit stage.
package proc

import "github.com/packetpath/dataplane/packet"

// Processor is anything with a Process operation and a place in the
// chain. A processor takes ownership of the packet for the duration of
// Process and is responsible for handing it to its successor (or
// dropping it).
type Processor interface {
	Name() string
	Process(p *packet.ParsedPacket)
}

// Chained is implemented by processors that sit in a linear layout and
// need their successor wired in after construction (the two-phase
// build: allocate every processor, then link next_processor).
type Chained interface {
	Processor
	SetNext(next Processor)
}

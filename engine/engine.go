// Package engine wires the processor chain together and runs the
// ingress poll loop that drives packets into it: the Switch that owns
// the host dataplane hookup, and the terminal TransmitProcessor stage.
package engine

import (
	"sync"
	"time"

	"github.com/packetpath/dataplane/header"
	"github.com/packetpath/dataplane/packet"
	"github.com/packetpath/dataplane/proc"
	"github.com/packetpath/dataplane/tm"
)

// Dataplane is the host hook a Switch polls for ingress packets and
// sends egress packets through.
type Dataplane interface {
	// Poll waits up to timeout for an ingress packet. ok is false on
	// timeout or when nothing was available.
	Poll(timeout time.Duration) (port int, pkt []byte, timestamp int64, ok bool)
	Send(port int, pkt []byte)
	Kill()
}

// TransmitProcessor is the terminal processor stage: it serializes the
// packet and hands it to the host dataplane's Send, addressed by the
// intrinsic_metadata.egress_port field stamped by the traffic manager.
type TransmitProcessor struct {
	dataplane Dataplane
}

// NewTransmitProcessor builds a TransmitProcessor bound to dataplane.
func NewTransmitProcessor(dataplane Dataplane) *TransmitProcessor {
	return &TransmitProcessor{dataplane: dataplane}
}

// Name implements proc.Processor.
func (t *TransmitProcessor) Name() string { return "transmit_processor" }

// Process implements proc.Processor. A packet whose
// intrinsic_metadata.egress_port does not resolve to an integer (no
// intrinsic_metadata header) is silently discarded rather than sent to an
// undefined port.
func (t *TransmitProcessor) Process(p *packet.ParsedPacket) {
	v, ok := p.GetField("intrinsic_metadata.egress_port")
	if !ok {
		return
	}
	port, ok := asInt64(v)
	if !ok {
		return
	}
	t.dataplane.Send(int(port), p.Serialize())
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// WireChain links stages sequentially via SetNext — stages[i] hands off
// to stages[i+1], and the last stage hands off to terminal. This is the
// two-phase build: every processor is constructed first, then this pass
// wires next_processor. Returns the chain head (stages[0], or terminal
// if stages is empty).
func WireChain(stages []proc.Chained, terminal proc.Processor) proc.Processor {
	for i, s := range stages {
		if i+1 < len(stages) {
			s.SetNext(stages[i+1])
		} else {
			s.SetNext(terminal)
		}
	}
	if len(stages) == 0 {
		return terminal
	}
	return stages[0]
}

// Switch owns a wired processor chain and the host dataplane hookup: it
// polls for ingress packets, builds a ParsedPacket for each, and drives
// it into the chain, while disabled/Enable/Disable gate whether ingress
// packets are accepted.
type Switch struct {
	name            string
	dataplane       Dataplane
	metadataDescs   map[string]*header.Descriptor
	firstProcessor  proc.Processor
	trafficManagers []*tm.TrafficManager

	mu       sync.Mutex
	disabled bool

	stopPoll chan struct{}
	done     chan struct{}
}

// NewSwitch builds a Switch from an already-wired processor chain.
// trafficManagers lists every TM reachable in the chain, so Enable and
// Kill can start and stop their worker goroutines.
func NewSwitch(name string, dataplane Dataplane, metadataDescs map[string]*header.Descriptor,
	firstProcessor proc.Processor, trafficManagers []*tm.TrafficManager) *Switch {
	return &Switch{
		name:            name,
		dataplane:       dataplane,
		metadataDescs:   metadataDescs,
		firstProcessor:  firstProcessor,
		trafficManagers: trafficManagers,
		disabled:        true,
		stopPoll:        make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Enable starts every traffic manager's worker goroutine (idempotent,
// since tm.TrafficManager.Start is) and allows ingress packets through
// ProcessPacket.
func (s *Switch) Enable() {
	for _, t := range s.trafficManagers {
		t.Start()
	}
	s.mu.Lock()
	s.disabled = false
	s.mu.Unlock()
}

// Disable stops accepting ingress packets; traffic manager threads keep
// running.
func (s *Switch) Disable() {
	s.mu.Lock()
	s.disabled = true
	s.mu.Unlock()
}

// Start launches the ingress poll loop on a new goroutine.
func (s *Switch) Start() {
	go s.run()
}

func (s *Switch) run() {
	defer close(s.done)
	for {
		select {
		case <-s.stopPoll:
			return
		default:
		}

		port, pkt, _, ok := s.dataplane.Poll(2 * time.Second)
		if ok {
			s.ProcessPacket(port, pkt)
		}
	}
}

// Kill stops the poll loop, the host dataplane, and every traffic
// manager's worker goroutine, then waits for the poll loop to exit.
func (s *Switch) Kill() {
	close(s.stopPoll)
	s.dataplane.Kill()
	for _, t := range s.trafficManagers {
		t.Kill()
	}
	<-s.done
}

// ProcessPacket builds a ParsedPacket from pkt, received on inPort, and
// hands it to the first processor in the chain. Packets are discarded
// while the switch is disabled.
func (s *Switch) ProcessPacket(inPort int, pkt []byte) {
	s.mu.Lock()
	disabled := s.disabled
	s.mu.Unlock()
	if disabled {
		return
	}

	p := packet.New(pkt, s.metadataDescs)
	p.SetField("intrinsic_metadata.ingress_port", int64(inPort))

	if s.firstProcessor != nil {
		s.firstProcessor.Process(p)
	}
}

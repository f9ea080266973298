// Package tm implements the traffic manager: a priority-scheduled,
// multi-queue scheduler that accepts packets from the pipeline, expands
// multicast destinations by replication, and drains them to the
// transmit stage on a dedicated worker goroutine.
package tm

import (
	"sync"

	"github.com/packetpath/dataplane/packet"
	"github.com/packetpath/dataplane/proc"
)

const (
	dropSpec        = 0xFFFFFFFF
	multicastFlag   = 0x10000000
	portQueueMask   = 0xFFFF
)

// PortQueue identifies a single (port, queue) destination.
type PortQueue struct {
	Port, Queue int
}

// TrafficManager manages port_count*queues_per_port FIFO queues and a
// multicast index, draining them on a single worker goroutine under
// strict priority (highest queue index serviced first within a port,
// ports visited round-robin starting after the last one serviced).
type TrafficManager struct {
	name          string
	portCount     int
	queuesPerPort int
	discipline    string

	mu           sync.Mutex
	queues       [][][]*packet.ParsedPacket
	multicastMap map[int64][]PortQueue
	running      bool
	lastPort     int

	signal chan struct{}
	next   proc.Processor
}

// New builds a TrafficManager with portCount ports, each with
// queuesPerPort queues, discipline fixed at "strict" (the only supported
// discipline).
func New(name string, portCount, queuesPerPort int) *TrafficManager {
	queues := make([][][]*packet.ParsedPacket, portCount)
	for p := range queues {
		queues[p] = make([][]*packet.ParsedPacket, queuesPerPort)
	}

	return &TrafficManager{
		name:          name,
		portCount:     portCount,
		queuesPerPort: queuesPerPort,
		discipline:    "strict",
		queues:        queues,
		multicastMap:  make(map[int64][]PortQueue),
		signal:        make(chan struct{}, 1),
	}
}

// Name implements proc.Processor.
func (tm *TrafficManager) Name() string { return tm.name }

// SetNext implements proc.Chained.
func (tm *TrafficManager) SetNext(next proc.Processor) { tm.next = next }

// SetMulticastGroup installs the (port, queue) fan-out list for mc_idx.
func (tm *TrafficManager) SetMulticastGroup(mcIdx int64, group []PortQueue) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.multicastMap[mcIdx] = group
}

func (tm *TrafficManager) mapEgressSpec(spec int64) []PortQueue {
	if spec == dropSpec {
		return nil
	}
	if spec&multicastFlag == 0 {
		port := spec & portQueueMask
		queue := (spec >> 16) & portQueueMask
		return []PortQueue{{Port: int(port), Queue: int(queue)}}
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	mcIdx := spec & portQueueMask
	return tm.multicastMap[mcIdx]
}

// Process is the producer side: it reads
// intrinsic_metadata.egress_specification, expands it to a destination
// list, replicates the packet for every destination but the last, and
// enqueues under lock before signaling the worker. An absent field, the
// drop sentinel, or an empty destination list all silently drop p.
func (tm *TrafficManager) Process(p *packet.ParsedPacket) {
	v, ok := p.GetField("intrinsic_metadata.egress_specification")
	if !ok {
		return
	}
	spec, ok := asInt64(v)
	if !ok {
		return
	}

	dests := tm.mapEgressSpec(spec)
	if len(dests) == 0 {
		return
	}

	tm.mu.Lock()
	for i, d := range dests {
		pkt := p
		if i+1 != len(dests) {
			pkt = p.Replicate()
		}
		tm.queues[d.Port][d.Queue] = append(tm.queues[d.Port][d.Queue], pkt)
	}
	tm.mu.Unlock()

	tm.notify()
}

func (tm *TrafficManager) notify() {
	select {
	case tm.signal <- struct{}{}:
	default:
	}
}

// Start launches the dequeue worker goroutine. Calling Start more than
// once has no effect beyond the first call's side effects (the boolean
// return reports whether this call actually started the worker).
func (tm *TrafficManager) Start() bool {
	tm.mu.Lock()
	if tm.running {
		tm.mu.Unlock()
		return false
	}
	tm.running = true
	tm.mu.Unlock()

	go tm.run()
	return true
}

func (tm *TrafficManager) run() {
	for {
		<-tm.signal

		tm.mu.Lock()
		running := tm.running
		tm.mu.Unlock()
		if !running {
			return
		}

		for {
			pkt, ok := tm.dequeueOne()
			if !ok {
				break
			}
			if tm.next != nil {
				tm.next.Process(pkt)
			}
		}
	}
}

// dequeueOne selects the next packet by round-robin across ports
// starting after the last port serviced, visiting each port's queues
// from highest index to lowest (strict priority), and pops its head.
func (tm *TrafficManager) dequeueOne() (*packet.ParsedPacket, bool) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for i := 0; i < tm.portCount; i++ {
		port := (i + tm.lastPort + 1) % tm.portCount
		for q := tm.queuesPerPort - 1; q >= 0; q-- {
			if len(tm.queues[port][q]) == 0 {
				continue
			}
			pkt := tm.queues[port][q][0]
			tm.queues[port][q] = tm.queues[port][q][1:]
			pkt.SetField("intrinsic_metadata.egress_port", int64(port))
			tm.lastPort = port
			return pkt, true
		}
	}
	return nil, false
}

// Kill stops the worker cooperatively: the current pass over the queues
// (if any) finishes, and the next wakeup observes running == false and
// returns instead of draining further.
func (tm *TrafficManager) Kill() {
	tm.mu.Lock()
	tm.running = false
	tm.mu.Unlock()
	tm.notify()
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

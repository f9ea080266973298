package match

import (
	"testing"

	"github.com/packetpath/dataplane/header"
	"github.com/packetpath/dataplane/packet"
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

func hundredByteBuffer() []byte {
	buf := make([]byte, 100)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func parsedEthernetPacket(t *testing.T) *packet.ParsedPacket {
	t.Helper()
	p := packet.New(hundredByteBuffer(), nil)
	if err := p.ParseHeader("ethernet", ethernetDescriptor()); err != nil {
		t.Fatal(err)
	}
	return p
}

type recordingActions struct {
	lastName   string
	lastParams map[string]any
	calls      int
}

func (r *recordingActions) Eval(name string, p *packet.ParsedPacket, params map[string]any) error {
	r.lastName = name
	r.lastParams = params
	r.calls++
	return nil
}

func TestExactEntryMatchesAndMisses(t *testing.T) {
	e := NewExactEntry(map[string]int64{"ethernet.ethertype": 0x0C0D}, "forward", nil)
	p := parsedEthernetPacket(t)

	if !e.CheckMatch(p) {
		t.Fatal("expected exact entry to match ethertype 0x0c0d")
	}

	e2 := NewExactEntry(map[string]int64{"ethernet.ethertype": 0x9999}, "forward", nil)
	if e2.CheckMatch(p) {
		t.Fatal("expected exact entry to miss on wrong value")
	}
}

func TestExactEntryMissesOnAbsentField(t *testing.T) {
	e := NewExactEntry(map[string]int64{"ipv4.ttl": 64}, "forward", nil)
	p := packet.New(hundredByteBuffer(), nil)
	if e.CheckMatch(p) {
		t.Fatal("expected miss on unparsed header reference")
	}
}

// TestTernaryEntryMaskedHit mirrors the spec's scenario 5: a ternary entry
// matching ethertype 0x08xx via a 0xFF00 mask.
func TestTernaryEntryMaskedHit(t *testing.T) {
	e := NewTernaryEntry(
		map[string]int64{"ethernet.ethertype": 0x0800},
		map[string]int64{"ethernet.ethertype": 0xFF00},
		"forward", nil, 10,
	)
	p := parsedEthernetPacket(t)
	p.SetField("ethernet.ethertype", int64(0x08AA))

	if !e.CheckMatch(p) {
		t.Fatal("expected masked ternary match")
	}
}

func TestTernaryEntryUnmaskedFieldIsExact(t *testing.T) {
	e := NewTernaryEntry(
		map[string]int64{"ethernet.ethertype": 0x0C0D},
		nil, "forward", nil, 0,
	)
	p := parsedEthernetPacket(t)
	if !e.CheckMatch(p) {
		t.Fatal("expected unmasked ternary entry to behave as exact match")
	}

	p.SetField("ethernet.ethertype", int64(0x0C0E))
	if e.CheckMatch(p) {
		t.Fatal("expected unmasked ternary entry to miss on changed value")
	}
}

func TestDefaultEntryAlwaysMatches(t *testing.T) {
	e := NewDefaultEntry("drop", nil)
	p := packet.New(hundredByteBuffer(), nil)
	if !e.CheckMatch(p) {
		t.Fatal("expected default entry to always match")
	}
}

func TestTableProcessFirstMatchWins(t *testing.T) {
	actions := &recordingActions{}
	table := NewTable("t1", actions)

	table.AddEntry(NewExactEntry(map[string]int64{"ethernet.ethertype": 0x0C0D}, "action_one", nil))
	table.AddEntry(NewTernaryEntry(
		map[string]int64{"ethernet.ethertype": 0x0C0D}, nil, "action_two", nil, 100,
	))

	p := parsedEthernetPacket(t)
	hit, actionRef := table.Process(p)

	if !hit || actionRef != "action_one" {
		t.Fatalf("got (%v, %q); want (true, action_one) — first entry in scan order must win", hit, actionRef)
	}
	if actions.calls != 1 || actions.lastName != "action_one" {
		t.Fatalf("expected action_one to be evaluated once, got %q x%d", actions.lastName, actions.calls)
	}

	bytes, packets := table.HitStats()
	if packets != 1 {
		t.Fatalf("packet count = %d, want 1", packets)
	}
	if bytes == 0 {
		t.Fatal("expected non-zero byte count after a hit")
	}
}

func TestTableProcessMissFallsToDefault(t *testing.T) {
	actions := &recordingActions{}
	table := NewTable("t1", actions)
	table.AddEntry(NewExactEntry(map[string]int64{"ethernet.ethertype": 0x9999}, "action_one", nil))
	table.SetDefaultEntry(NewDefaultEntry("action_default", nil))

	p := parsedEthernetPacket(t)
	hit, actionRef := table.Process(p)

	if hit {
		t.Fatal("expected a miss")
	}
	if actionRef != "action_default" {
		t.Fatalf("actionRef = %q, want action_default", actionRef)
	}

	_, packets := table.HitStats()
	if packets != 0 {
		t.Fatalf("packet count = %d, want 0 (default-entry misses do not count as hits)", packets)
	}
}

func TestAddEntryRedirectsDefaultType(t *testing.T) {
	table := NewTable("t1", nil)
	table.AddEntry(NewDefaultEntry("fallback", nil))

	if len(table.Entries()) != 0 {
		t.Fatal("expected default entry to not land in the scan-order entry list")
	}

	p := packet.New(hundredByteBuffer(), nil)
	hit, actionRef := table.Process(p)
	if hit || actionRef != "fallback" {
		t.Fatalf("got (%v, %q); want (false, fallback)", hit, actionRef)
	}
}

func TestRemoveEntry(t *testing.T) {
	table := NewTable("t1", nil)
	entry := NewExactEntry(map[string]int64{"ethernet.ethertype": 0x0C0D}, "a", nil)
	table.AddEntry(entry)

	if err := table.RemoveEntry(entry); err != nil {
		t.Fatal(err)
	}
	if len(table.Entries()) != 0 {
		t.Fatal("expected table to be empty after remove")
	}
	if err := table.RemoveEntry(entry); err == nil {
		t.Fatal("expected second remove to fail")
	}
}

func TestClearResetsEntriesAndOptionallyStatsAndDefault(t *testing.T) {
	actions := &recordingActions{}
	table := NewTable("t1", actions)
	table.AddEntry(NewExactEntry(map[string]int64{"ethernet.ethertype": 0x0C0D}, "a", nil))
	table.SetDefaultEntry(NewDefaultEntry("fallback", nil))
	table.Process(parsedEthernetPacket(t))

	table.Clear(false, false)
	if len(table.Entries()) != 0 {
		t.Fatal("expected entries cleared")
	}
	_, packets := table.HitStats()
	if packets != 1 {
		t.Fatalf("packet count = %d, want 1 (clearStats=false should preserve counters)", packets)
	}

	table.Clear(true, true)
	_, packets = table.HitStats()
	if packets != 0 {
		t.Fatalf("packet count = %d, want 0 after clearStats=true", packets)
	}
	_, actionRef := table.Process(packet.New(hundredByteBuffer(), nil))
	if actionRef != "" {
		t.Fatalf("expected no default entry after clearDefault=true, got %q", actionRef)
	}
}

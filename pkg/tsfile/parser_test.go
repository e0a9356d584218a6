package tsfile

import (
	"bytes"
	"math"
	"testing"

	"ipcaster/internal/apperr"
)

func TestParserFindsSyncAtOffsetZero(t *testing.T) {
	var buf bytes.Buffer
	if err := GenCBRTestFile188(&buf, 4000, 4_000_000, 0x100, 50); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}

	p, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if p.PacketSize() != PacketSize188 {
		t.Fatalf("PacketSize = %d, want 188", p.PacketSize())
	}
	if p.syncOffset != 0 {
		t.Fatalf("syncOffset = %d, want 0", p.syncOffset)
	}
}

func TestParserSyncSkipsGarbagePrefix(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 50))
	if err := GenCBRTestFile188(&buf, 4000, 4_000_000, 0x100, 50); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}

	p, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if p.syncOffset != 50 {
		t.Fatalf("syncOffset = %d, want 50", p.syncOffset)
	}
}

func TestParserSyncSpansMultipleChunks(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(make([]byte, 20000))
	if err := GenCBRTestFile188(&buf, 4000, 4_000_000, 0x100, 50); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}

	p, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if p.syncOffset != 20000 {
		t.Fatalf("syncOffset = %d, want 20000", p.syncOffset)
	}
}

func TestParserSyncNotFoundOnGarbage(t *testing.T) {
	garbage := bytes.Repeat([]byte{0x00}, 5000)
	_, err := NewParser(bytes.NewReader(garbage))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !apperr.Is(err, apperr.SyncNotFound) {
		t.Fatalf("expected SyncNotFound, got %v", err)
	}
}

func TestParserBitrateIndeterminateWithoutPCRs(t *testing.T) {
	var buf bytes.Buffer
	if err := GenTestFile188(&buf, 4000); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}

	_, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !apperr.Is(err, apperr.BitrateIndeterminate) {
		t.Fatalf("expected BitrateIndeterminate, got %v", err)
	}
}

func TestParserSucceedsWithExactlyTwoPCRs(t *testing.T) {
	// pcrInterval=1000 with 1500 packets places a PCR at i=0 and i=1000 only
	// (i=2000 never happens) — exactly two PCRs on the PID, which spec.md
	// §4.2 says is enough to compute a bitrate, not the failure case.
	var buf bytes.Buffer
	if err := GenCBRTestFile188(&buf, 1500, 4_000_000, 0x100, 1000); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}

	p, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if p.Bitrate() == 0 {
		t.Fatal("expected a nonzero inferred bitrate from exactly two PCRs")
	}
}

func TestParserInfersApproximateBitrate(t *testing.T) {
	const wantBitrate = 8_000_000
	var buf bytes.Buffer
	if err := GenCBRTestFile188(&buf, 30000, wantBitrate, 0x100, 20); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}

	p, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}

	gotErr := math.Abs(float64(p.Bitrate())-wantBitrate) / wantBitrate
	if gotErr > 0.01 {
		t.Fatalf("Bitrate = %d, want ~%d (%.4f%% off)", p.Bitrate(), wantBitrate, gotErr*100)
	}
}

func TestParserReadYieldsMonotonicTimestampsFromZero(t *testing.T) {
	var buf bytes.Buffer
	if err := GenCBRTestFile188(&buf, 20000, 4_000_000, 0x100, 50); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}

	p, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}

	first, err := p.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if first == nil {
		t.Fatal("expected a buffer, got nil (EOF)")
	}
	if first.Timestamp(0) != 0 {
		t.Fatalf("first packet timestamp = %d, want 0", first.Timestamp(0))
	}
	for i := 1; i < first.NumPackets(); i++ {
		if first.Timestamp(i) < first.Timestamp(i-1) {
			t.Fatalf("timestamps not monotonic at packet %d", i)
		}
	}

	second, err := p.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if second == nil {
		t.Fatal("expected a second buffer, got nil")
	}
	if second.Timestamp(0) <= first.Timestamp(first.NumPackets()-1) {
		t.Fatalf("second buffer's first timestamp did not advance past the first buffer's last")
	}
}

func TestParserReadReturnsNilAtEOF(t *testing.T) {
	var buf bytes.Buffer
	if err := GenCBRTestFile188(&buf, 100, 4_000_000, 0x100, 20); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}

	p, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}

	for {
		b, err := p.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if b == nil {
			return
		}
	}
}

func TestEstimatedBuffersPerSecondAtLeastOne(t *testing.T) {
	var buf bytes.Buffer
	if err := GenCBRTestFile188(&buf, 20000, 100_000, 0x100, 50); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}
	p, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if p.EstimatedBuffersPerSecond() < 1 {
		t.Fatalf("EstimatedBuffersPerSecond = %d, want >= 1", p.EstimatedBuffersPerSecond())
	}
}

func TestParserDetects204BytePackets(t *testing.T) {
	var buf bytes.Buffer
	if err := GenCBRTestFile204(&buf, 4000, 4_000_000, 0x100, 50); err != nil {
		t.Fatalf("generate fixture: %v", err)
	}

	p, err := NewParser(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	if p.PacketSize() != PacketSize204 {
		t.Fatalf("PacketSize = %d, want 204", p.PacketSize())
	}

	tsb, err := p.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tsb == nil {
		t.Fatal("expected a non-nil first buffer")
	}
	if tsb.PacketSize() != PacketSize204 {
		t.Fatalf("buffer PacketSize = %d, want 204", tsb.PacketSize())
	}
}

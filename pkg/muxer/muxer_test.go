package muxer

import (
	"testing"
	"time"

	"ipcaster/pkg/buffer"
	"ipcaster/pkg/netio"
)

func newDatagram(sendTick time.Time, size int) *netio.Datagram {
	buf := buffer.New(size)
	buf.SetSize(size)
	return &netio.Datagram{Payload: buf, SendTick: sendTick}
}

func TestStreamNotEligibleBeforePrerollBuffered(t *testing.T) {
	s := newStream(netio.Endpoint{IP: "127.0.0.1", Port: 5000}, 8, 50*time.Millisecond)

	base := time.Now()
	s.Push(newDatagram(base, 100))
	s.Push(newDatagram(base.Add(20*time.Millisecond), 100))

	// Only 20ms is buffered, below the 50ms preroll: nothing is eligible no
	// matter how far the horizon is pushed out.
	if d := s.popFrontEligible(base.Add(time.Second)); d != nil {
		t.Fatal("expected no datagram to be eligible before preroll worth of buffering")
	}
}

func TestStreamEligibleOncePrerollBufferedAndDeadlinePassed(t *testing.T) {
	s := newStream(netio.Endpoint{IP: "127.0.0.1", Port: 5001}, 8, 50*time.Millisecond)

	base := time.Now()
	s.Push(newDatagram(base, 100))
	s.Push(newDatagram(base.Add(50*time.Millisecond), 100))
	s.Push(newDatagram(base.Add(100*time.Millisecond), 100))

	// 100ms is buffered, clearing the 50ms preroll: start_point is fixed at
	// this horizon, but the datagram that triggered it has deadline == this
	// same horizon, so it is not itself eligible in this call.
	horizon := base.Add(time.Second)
	if d := s.popFrontEligible(horizon); d != nil {
		t.Fatal("expected the datagram that sets start_point to not be eligible in the same call")
	}
	if d := s.popFrontEligible(horizon.Add(time.Millisecond)); d == nil {
		t.Fatal("expected the first datagram to become eligible once its deadline passes")
	}
	if d := s.popFrontEligible(horizon.Add(2 * time.Millisecond)); d != nil {
		t.Fatal("expected the second datagram to not be eligible yet")
	}
	if d := s.popFrontEligible(horizon.Add(51 * time.Millisecond)); d == nil {
		t.Fatal("expected the second datagram to become eligible once its own deadline passes")
	}
}

func TestStreamPushSetsEndpoint(t *testing.T) {
	ep := netio.Endpoint{IP: "192.0.2.1", Port: 6000}
	s := newStream(ep, 4, 0)

	d := newDatagram(time.Now(), 10)
	s.Push(d)

	if d.Endpoint != ep {
		t.Fatalf("Endpoint = %+v, want %+v", d.Endpoint, ep)
	}
}

func TestStreamFlushReturnsOnceDrained(t *testing.T) {
	s := newStream(netio.Endpoint{}, 4, 0)
	base := time.Now()
	s.Push(newDatagram(base, 10))

	done := make(chan struct{})
	go func() {
		s.Flush()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Flush returned before the datagram was popped")
	case <-time.After(150 * time.Millisecond):
	}

	// The first call fixes start_point at its own horizon, which leaves the
	// front datagram's deadline equal to (not before) that horizon; the
	// second, later call is the one that actually pops it.
	s.popFrontEligible(base.Add(time.Millisecond))
	s.popFrontEligible(base.Add(2 * time.Millisecond))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Flush did not return after the FIFO drained")
	}
}

func TestStreamTimeZeroBeforeAnyPop(t *testing.T) {
	s := newStream(netio.Endpoint{}, 4, 0)
	if got := s.StreamTime(); got != 0 {
		t.Fatalf("StreamTime() = %v, want 0", got)
	}
}

func TestStreamBufferedTime(t *testing.T) {
	s := newStream(netio.Endpoint{}, 4, 0)
	base := time.Now()
	s.Push(newDatagram(base, 10))
	s.Push(newDatagram(base.Add(200*time.Millisecond), 10))

	if got := s.BufferedTime(); got != 200*time.Millisecond {
		t.Fatalf("BufferedTime() = %v, want 200ms", got)
	}
}

func TestMuxerCreateAndRemoveStream(t *testing.T) {
	m, err := New(DefaultBurstPeriod, DefaultPreroll)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	s := m.CreateStream(netio.Endpoint{IP: "127.0.0.1", Port: 5004}, 8)
	if len(m.streams) != 1 {
		t.Fatalf("expected 1 registered stream, got %d", len(m.streams))
	}

	m.RemoveStream(s)
	if len(m.streams) != 0 {
		t.Fatalf("expected 0 registered streams after removal, got %d", len(m.streams))
	}
}

func TestMuxerSendsEligibleDatagrams(t *testing.T) {
	// preroll 0 so a single pushed datagram (which never accumulates
	// buffered time on its own) still clears the eligibility gate.
	m, err := New(2*time.Millisecond, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer m.Close()

	s := m.CreateStream(netio.Endpoint{IP: "127.0.0.1", Port: 5005}, 8)

	now := time.Now()
	s.Push(newDatagram(now, 4))

	deadline := time.After(2 * time.Second)
	for {
		if s.fifo.ReadAvailable() == 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the muxer to send the datagram")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

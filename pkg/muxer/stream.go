package muxer

import (
	"sync"
	"time"

	"ipcaster/pkg/fifo"
	"ipcaster/pkg/netio"
)

// Stream is one destination fed into a Muxer: a bounded FIFO of datagrams
// plus the sync_point/start_point bookkeeping that maps a datagram's
// PCR-derived send tick onto the muxer's wall clock (spec.md §4.5).
// Grounded on
// original_source/src/ipcaster/net/DatagramsMuxer.hpp's nested Stream class.
type Stream struct {
	endpoint netio.Endpoint
	fifo     *fifo.FIFO[*netio.Datagram]
	preroll  time.Duration

	mu            sync.Mutex
	syncPointSet  bool
	syncPoint     time.Time // send tick of the first datagram ever pushed
	startPointSet bool
	startPoint    time.Time // muxer wall-clock time when the first datagram became eligible
	tailSendTick  time.Time
	poppedTick    time.Time
	hasPopped     bool

	estimatedBuffersPerSecond uint32
	estimatedBitrate          uint64
}

func newStream(endpoint netio.Endpoint, fifoCapacity int, preroll time.Duration) *Stream {
	return &Stream{
		endpoint: endpoint,
		fifo:     fifo.New[*netio.Datagram](fifoCapacity),
		preroll:  preroll,
	}
}

// Push enqueues a datagram, stamping it with the stream's endpoint. The
// first pushed datagram's send tick becomes this stream's sync point.
func (s *Stream) Push(d *netio.Datagram) {
	s.mu.Lock()
	if !s.syncPointSet {
		s.syncPoint = d.SendTick
		s.syncPointSet = true
	}
	s.mu.Unlock()

	d.Endpoint = s.endpoint
	s.fifo.Push(d)

	s.mu.Lock()
	s.tailSendTick = d.SendTick
	s.mu.Unlock()
}

// Flush blocks until the stream's FIFO has been fully drained by the
// muxer's prepare loop into the prepared burst; datagrams drained that way
// may not have been sent yet when Flush returns.
func (s *Stream) Flush() {
	for s.fifo.ReadAvailable() > 0 {
		time.Sleep(100 * time.Millisecond)
	}
}

// BufferedTime returns how much stream time is currently buffered.
func (s *Stream) BufferedTime() time.Duration {
	if s.fifo.ReadAvailable() == 0 {
		return 0
	}
	s.mu.Lock()
	tail := s.tailSendTick
	s.mu.Unlock()
	return tail.Sub(s.fifo.Front().SendTick)
}

// bufferedTimeLocked is BufferedTime without acquiring s.mu, for callers
// that already hold it.
func (s *Stream) bufferedTimeLocked() time.Duration {
	if s.fifo.ReadAvailable() == 0 {
		return 0
	}
	return s.tailSendTick.Sub(s.fifo.Front().SendTick)
}

// StreamTime returns the stream-relative time of the last datagram sent, or
// zero if none has been sent yet.
func (s *Stream) StreamTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPopped {
		return 0
	}
	return s.poppedTick.Sub(s.syncPoint)
}

// Close is a no-op: the underlying UDP socket belongs to the Muxer, not the
// individual Stream, and is closed once when the Muxer itself shuts down.
func (s *Stream) Close() {}

// SetBuffering records the encapsulator's buffering estimate for this
// stream. The values are only stored; neither Stats nor any other accessor
// reports them.
func (s *Stream) SetBuffering(estimatedBuffersPerSecond uint32, estimatedBitrate uint64) {
	s.mu.Lock()
	s.estimatedBuffersPerSecond = estimatedBuffersPerSecond
	s.estimatedBitrate = estimatedBitrate
	s.mu.Unlock()
}

// popFrontEligible implements the Muxer-Stream pop-eligible(now) contract
// (spec.md §4.5): a stream stays silent until at least preroll worth of
// datagrams are buffered, after which the datagram at the front of the
// FIFO is eligible once its send tick, normalized onto start_point, has
// passed now. now is the prepare-thread's horizon (timer.now()+preroll),
// not the wall clock at the moment of the call — that shift is what makes
// the prepared burst carry ~preroll ms of lookahead.
func (s *Stream) popFrontEligible(now time.Time) *netio.Datagram {
	if s.fifo.ReadAvailable() == 0 {
		return nil
	}

	s.mu.Lock()
	if !s.startPointSet {
		if s.bufferedTimeLocked() < s.preroll {
			s.mu.Unlock()
			return nil
		}
		s.startPoint = now
		s.startPointSet = true
	}
	syncPoint, startPoint := s.syncPoint, s.startPoint
	s.mu.Unlock()

	front := s.fifo.Front()
	deadline := startPoint.Add(front.SendTick.Sub(syncPoint))
	if !deadline.Before(now) {
		return nil
	}

	s.fifo.Pop()

	s.mu.Lock()
	s.poppedTick = front.SendTick
	s.hasPopped = true
	s.mu.Unlock()

	// Overwrite the send tick to the deadline (wall-clock space) so the
	// send-thread's prefix-take can compare it directly against its own now.
	front.SendTick = deadline
	return front
}

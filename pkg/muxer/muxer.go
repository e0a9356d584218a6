// Package muxer implements the timed multiplexing of several streams'
// datagrams onto one UDP socket. A prepare-thread continuously sweeps every
// stream's FIFO into a shared prepared burst using a preroll-shifted
// horizon, and an independent send-thread wakes every burst period, takes
// the deadline-passed prefix of that burst, and sends it — decoupling
// "deciding what to send" from "sending" so a slow stream traversal can't
// starve the send timer (spec.md §4.5). Grounded on
// original_source/src/ipcaster/net/DatagramsMuxer.hpp.
package muxer

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"ipcaster/pkg/netio"
	"ipcaster/pkg/timer"
)

// DefaultBurstPeriod is the interval between successive send bursts
// (spec.md §4.5, §9 "burst_period").
const DefaultBurstPeriod = 4 * time.Millisecond

// DefaultPreroll is how much stream time must be buffered before a stream
// starts emitting, and how far ahead of now the prepare-thread looks when
// filling the prepared burst (spec.md §4.5, §5 "Preroll contract").
const DefaultPreroll = 40 * time.Millisecond

// Stats summarizes recent send-loop timing, mirroring the min/max windows
// DatagramsMuxer::stats() reports.
type Stats struct {
	MinTimer, MaxTimer     time.Duration
	MinPrepare, MaxPrepare time.Duration
	MinSend, MaxSend       time.Duration
	HighBurstCount         uint32
}

type burstRecord struct {
	at   time.Time
	size int
}

// Muxer owns a single UDP socket and a set of Streams, and periodically
// sends every stream's currently-eligible datagrams in one burst.
type Muxer struct {
	timer   *timer.Periodic
	sender  *netio.UDPSender
	preroll time.Duration

	mu      sync.Mutex
	streams []*Stream

	burstListMu sync.Mutex // the "prepared burst": lightweight, held only across one append or one prefix-take
	burstList   []*netio.Datagram

	sendDone chan struct{} // signaled by the send-thread after each burst, wakes the prepare-thread
	done     chan struct{} // closed by Close to unblock the prepare-thread promptly

	exit atomic.Bool
	wg   sync.WaitGroup

	statsMu       sync.Mutex
	stats         Stats
	statsWarm     bool
	lastBurstTime time.Time

	burstMu    sync.Mutex
	lastBursts []burstRecord
}

// New creates a Muxer sending bursts every burstPeriod, gating each stream's
// first emission on preroll worth of buffering, and starts its prepare and
// send threads.
func New(burstPeriod, preroll time.Duration) (*Muxer, error) {
	sender, err := netio.NewUDPSender()
	if err != nil {
		return nil, err
	}

	m := &Muxer{
		timer:    timer.New(burstPeriod),
		sender:   sender,
		preroll:  preroll,
		sendDone: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	m.stats.MinTimer = time.Duration(math.MaxInt64)
	m.stats.MinPrepare = time.Duration(math.MaxInt64)
	m.stats.MinSend = time.Duration(math.MaxInt64)

	m.wg.Add(2)
	go m.prepareLoop()
	go m.sendLoop()

	return m, nil
}

// CreateStream registers a new destination stream with a FIFO sized to hold
// fifoCapacity datagrams.
func (m *Muxer) CreateStream(endpoint netio.Endpoint, fifoCapacity int) *Stream {
	s := newStream(endpoint, fifoCapacity, m.preroll)

	m.mu.Lock()
	m.streams = append(m.streams, s)
	m.mu.Unlock()

	return s
}

// RemoveStream unregisters a stream; datagrams still in its FIFO are
// discarded, not sent, while those already moved into the prepared burst
// are still sent.
func (m *Muxer) RemoveStream(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, st := range m.streams {
		if st == s {
			m.streams = append(m.streams[:i], m.streams[i+1:]...)
			return
		}
	}
}

// Close stops the prepare and send threads and releases the UDP socket.
func (m *Muxer) Close() error {
	m.exit.Store(true)
	close(m.done)
	m.wg.Wait()
	return m.sender.Close()
}

// Stats returns a snapshot of the send loop's recent timing statistics.
func (m *Muxer) Stats() Stats {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	return m.stats
}

// OutputBandwidth estimates the current output bitrate (bits/second) from
// bursts sent over roughly the last second, along with the largest gap
// observed between two successive bursts.
func (m *Muxer) OutputBandwidth() (bitrate uint64, maxBurstGap time.Duration) {
	m.burstMu.Lock()
	bursts := append([]burstRecord(nil), m.lastBursts...)
	m.burstMu.Unlock()

	if len(bursts) <= 1 {
		return 0, 0
	}

	bytes := 0
	var prev time.Time
	for _, b := range bursts {
		if !prev.IsZero() {
			if d := b.at.Sub(prev); d > maxBurstGap {
				maxBurstGap = d
			}
		}
		bytes += b.size
		prev = b.at
	}

	span := bursts[len(bursts)-1].at.Sub(bursts[0].at)
	if span <= 0 {
		return 0, maxBurstGap
	}
	bitrate = uint64(float64(bytes) * 8 * float64(time.Second) / float64(span))
	return bitrate, maxBurstGap
}

// prepareLoop is the prepare-thread (spec.md §4.5 "Prepare-thread loop"): it
// repeatedly sweeps every stream with a horizon shifted preroll ahead of
// now, appending every datagram that becomes eligible under that horizon to
// the prepared burst, then waits for the send-thread's signal before
// sweeping again. Round-robin visiting per pass approximates a
// work-conserving scheduler; there is no per-stream quota.
func (m *Muxer) prepareLoop() {
	defer m.wg.Done()

	for !m.exit.Load() {
		horizon := time.Now().Add(m.preroll)

		for {
			m.mu.Lock()
			streams := append([]*Stream(nil), m.streams...)
			m.mu.Unlock()

			added := false
			for _, s := range streams {
				for {
					d := s.popFrontEligible(horizon)
					if d == nil {
						break
					}
					m.appendPrepared(d)
					added = true
				}
			}
			if !added {
				break
			}
		}

		select {
		case <-m.sendDone:
		case <-m.done:
		}
	}
}

// appendPrepared appends one datagram to the shared prepared burst, held
// under the burst-list mutex only for the append itself.
func (m *Muxer) appendPrepared(d *netio.Datagram) {
	m.burstListMu.Lock()
	m.burstList = append(m.burstList, d)
	m.burstListMu.Unlock()
}

// sendLoop is the send-thread (spec.md §4.5 "Send-thread loop"): it wakes
// every burst period, takes the longest prefix of the prepared burst whose
// (now wall-clock) send tick has already passed, sends it, and signals the
// prepare-thread to refill.
func (m *Muxer) sendLoop() {
	defer m.wg.Done()

	var lastBurst time.Time
	for !m.exit.Load() {
		now := m.timer.Wait()

		burst, size := m.takeDuePrefix(now)
		tTake := time.Now()

		m.sendBurst(burst)
		tSend := time.Now()

		if len(burst) > 0 {
			m.keepSendStats(now, lastBurst, tTake, tSend, size)
		}
		lastBurst = now

		select {
		case m.sendDone <- struct{}{}:
		default:
		}
	}
}

// takeDuePrefix removes and returns the longest prefix of the prepared
// burst list whose send tick has already passed now, preserving append
// order; the first entry whose deadline hasn't passed terminates the scan
// (spec.md §4.5: "entries are in append order; the first element whose
// deadline ≥ now terminates the scan").
func (m *Muxer) takeDuePrefix(now time.Time) ([]*netio.Datagram, int) {
	m.burstListMu.Lock()
	defer m.burstListMu.Unlock()

	i := 0
	for i < len(m.burstList) && m.burstList[i].SendTick.Before(now) {
		i++
	}

	due := m.burstList[:i]
	m.burstList = append([]*netio.Datagram(nil), m.burstList[i:]...)

	size := 0
	for _, d := range due {
		size += d.Payload.Size()
	}
	return due, size
}

// sendBurst sends every datagram in burst to its destination, logging (but
// not stopping on) individual send failures.
func (m *Muxer) sendBurst(burst []*netio.Datagram) {
	for _, d := range burst {
		if _, err := m.sender.Send(d.Endpoint, d.Payload.Payload()); err != nil {
			slog.Error("muxer: udp send failed", "endpoint", d.Endpoint, "err", err)
		}
	}
}

// keepSendStats updates the running min/max timing windows and appends this
// burst to the bandwidth-estimation window.
func (m *Muxer) keepSendStats(now, lastBurst, tTake, tSend time.Time, size int) {
	m.statsMu.Lock()
	if !m.statsWarm {
		m.statsWarm = true
		m.statsMu.Unlock()
		m.appendBurst(now, size)
		return
	}

	timerDelta := now.Sub(lastBurst)
	prepareTime := tTake.Sub(now)
	sendTime := tSend.Sub(tTake)

	if timerDelta > m.stats.MaxTimer {
		m.stats.MaxTimer = timerDelta
	}
	if timerDelta < m.stats.MinTimer {
		m.stats.MinTimer = timerDelta
	}
	if prepareTime > m.stats.MaxPrepare {
		m.stats.MaxPrepare = prepareTime
	}
	if prepareTime < m.stats.MinPrepare {
		m.stats.MinPrepare = prepareTime
	}
	if sendTime > m.stats.MaxSend {
		m.stats.MaxSend = sendTime
	}
	if sendTime < m.stats.MinSend {
		m.stats.MinSend = sendTime
	}

	period := m.timer.Period()
	highBurst := timerDelta >= period+2*time.Millisecond
	if highBurst {
		m.stats.HighBurstCount++
	}
	m.statsMu.Unlock()

	if highBurst {
		slog.Debug("muxer: high burst period", "timerDelta", timerDelta, "prepare", prepareTime, "send", sendTime)
	}

	m.appendBurst(now, size)
}

// appendBurst records a burst's time and size for OutputBandwidth,
// discarding entries once the tracked window exceeds one second.
func (m *Muxer) appendBurst(at time.Time, size int) {
	m.burstMu.Lock()
	defer m.burstMu.Unlock()

	if len(m.lastBursts) > 1 {
		if m.lastBursts[len(m.lastBursts)-1].at.Sub(m.lastBursts[0].at) >= time.Second {
			m.lastBursts = m.lastBursts[1:]
		}
	}
	m.lastBursts = append(m.lastBursts, burstRecord{at: at, size: size})
}

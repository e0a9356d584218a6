// Package smpte2022 encapsulates MPEG-2 TS packets into SMPTE 2022-2
// datagrams: 7 TS packets per payload, no RTP header (spec.md §4.3).
// Grounded on
// original_source/src/ipcaster/smpte2022/SMPTE2022Encapsulator.hpp.
package smpte2022

import (
	"time"

	"ipcaster/pkg/buffer"
	"ipcaster/pkg/netio"
	"ipcaster/pkg/tsfile"
)

// PacketsPerDatagram is the number of TS packets carried per SMPTE 2022-2
// payload (spec.md §4.3).
const PacketsPerDatagram = 7

// DatagramConsumer receives the datagrams an Encapsulator produces.
type DatagramConsumer interface {
	Push(d *netio.Datagram)
	Flush()
	Close()
	SetBuffering(buffersPerSecond uint32, bitrate uint64)
}

// pendingDatagram accumulates packets across successive Push calls until it
// holds a full PacketsPerDatagram payload.
type pendingDatagram struct {
	buf      *buffer.Buffer
	filled   int
	sendTick time.Time
}

// Encapsulator groups a stream of TS buffers into fixed-size SMPTE 2022-2
// datagrams and forwards each completed one to a DatagramConsumer.
type Encapsulator struct {
	consumer   DatagramConsumer
	unfinished *pendingDatagram
}

// New creates an Encapsulator pushing completed datagrams to consumer.
func New(consumer DatagramConsumer) *Encapsulator {
	return &Encapsulator{consumer: consumer}
}

// Push encapsulates tsBuf's packets into datagrams, pushing each one
// completed to the consumer. The buffer's last group of up to
// PacketsPerDatagram packets (a full group too, when the buffer ends on an
// exact multiple of PacketsPerDatagram) is buffered and pushed by a later
// Push or Flush.
func (e *Encapsulator) Push(tsBuf *buffer.TSBuffer) {
	numPackets := tsBuf.NumPackets()
	pktIndex := 0

	if e.unfinished != nil {
		pktIndex = e.fillUnfinished(tsBuf, numPackets)
	}

	for pktIndex+PacketsPerDatagram < numPackets {
		payload := tsBuf.Child(pktIndex, PacketsPerDatagram)
		e.consumer.Push(&netio.Datagram{
			Payload:  payload.Buffer,
			SendTick: sendTick(tsBuf.Timestamp(pktIndex)),
		})
		pktIndex += PacketsPerDatagram
	}

	if remaining := numPackets - pktIndex; remaining > 0 {
		e.storeUnfinished(tsBuf, pktIndex, remaining)
	}
}

// Flush pushes any partially-filled datagram as-is, then flushes the
// consumer. Called at end of stream.
func (e *Encapsulator) Flush() {
	if e.unfinished != nil {
		e.consumer.Push(&netio.Datagram{
			Payload:  e.unfinished.buf,
			SendTick: e.unfinished.sendTick,
		})
		e.unfinished = nil
	}
	e.consumer.Flush()
}

// Close releases the consumer's resources. Called after Flush when no more
// Push calls will be made.
func (e *Encapsulator) Close() {
	e.consumer.Close()
}

// SetBuffering forwards a buffering estimate to the consumer, converted from
// TS-buffer to datagram granularity.
func (e *Encapsulator) SetBuffering(estimatedBuffersPerSecond uint32, estimatedBitrate uint64) {
	next := uint32(estimatedBitrate / uint64(PacketsPerDatagram*8*188))
	e.consumer.SetBuffering(next, estimatedBitrate)
}

// fillUnfinished copies as many of tsBuf's leading packets as needed to
// complete the pending datagram, pushing it once full. Returns the number of
// packets consumed.
func (e *Encapsulator) fillUnfinished(tsBuf *buffer.TSBuffer, numPackets int) int {
	packetSize := tsBuf.PacketSize()
	remaining := PacketsPerDatagram - e.unfinished.filled
	toCopy := remaining
	if numPackets < toCopy {
		toCopy = numPackets
	}

	dst := e.unfinished.buf.Data()[e.unfinished.filled*packetSize:]
	copy(dst, tsBuf.Data()[:toCopy*packetSize])
	e.unfinished.filled += toCopy
	e.unfinished.buf.SetSize(e.unfinished.filled * packetSize)

	if e.unfinished.filled == PacketsPerDatagram {
		e.consumer.Push(&netio.Datagram{
			Payload:  e.unfinished.buf,
			SendTick: e.unfinished.sendTick,
		})
		e.unfinished = nil
	}

	return toCopy
}

// storeUnfinished copies the trailing numPackets of tsBuf, starting at
// pktIndex, into a fresh pending datagram to be completed later.
func (e *Encapsulator) storeUnfinished(tsBuf *buffer.TSBuffer, pktIndex, numPackets int) {
	packetSize := tsBuf.PacketSize()
	buf := buffer.New(PacketsPerDatagram * packetSize)

	off := pktIndex * packetSize
	copy(buf.Data(), tsBuf.Data()[off:off+numPackets*packetSize])
	buf.SetSize(numPackets * packetSize)

	e.unfinished = &pendingDatagram{
		buf:      buf,
		filled:   numPackets,
		sendTick: sendTick(tsBuf.Timestamp(pktIndex)),
	}
}

// sendTick converts a 27MHz PCR-derived timestamp into a wall-clock-shaped
// time.Time carrying the same relative spacing; MuxerStream normalizes it
// against a sync point before scheduling actual sends.
func sendTick(ticks uint64) time.Time {
	d := time.Duration(float64(ticks) * float64(time.Second) / float64(tsfile.PCRClockFrequency))
	return time.Time{}.Add(d)
}

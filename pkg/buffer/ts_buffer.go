package buffer

// TSBuffer is a Buffer specialized for a run of fixed-size MPEG-2 TS packets.
// Alongside the byte payload it keeps a per-packet 27MHz timestamp array
// (spec.md §3, §4.2): timestamps[i] is the scheduled send tick for packet i.
// It is grounded on original_source/src/ipcaster/mpeg2-ts/MPEG2TSBuffer.hpp.
type TSBuffer struct {
	*Buffer

	packetSize  int
	numPackets  int
	timestamps  []uint64
	firstPacket int // index of timestamps[0] within a Child's parent numbering
}

// NewTSBuffer allocates an owning TSBuffer able to hold up to maxPackets
// packets of packetSize bytes each.
func NewTSBuffer(maxPackets, packetSize int) *TSBuffer {
	return &TSBuffer{
		Buffer:     New(maxPackets * packetSize),
		packetSize: packetSize,
		timestamps: make([]uint64, maxPackets),
	}
}

// PacketSize returns the fixed TS packet size (188 or 204).
func (b *TSBuffer) PacketSize() int { return b.packetSize }

// NumPackets returns the number of valid packets currently held.
func (b *TSBuffer) NumPackets() int { return b.numPackets }

// SetNumPackets sets the number of valid packets and updates the buffer's
// byte size accordingly.
func (b *TSBuffer) SetNumPackets(n int) {
	b.numPackets = n
	b.SetSize(n * b.packetSize)
}

// Packet returns the raw bytes of packet i (0-based, within this buffer).
func (b *TSBuffer) Packet(i int) []byte {
	off := i * b.packetSize
	return b.Data()[off : off+b.packetSize]
}

// Timestamp returns the scheduled 27MHz send tick for packet i.
func (b *TSBuffer) Timestamp(i int) uint64 { return b.timestamps[i] }

// SetTimestamp sets the scheduled 27MHz send tick for packet i.
func (b *TSBuffer) SetTimestamp(i int, t uint64) { b.timestamps[i] = t }

// Timestamps exposes the underlying timestamp slice for bulk assignment.
func (b *TSBuffer) Timestamps() []uint64 { return b.timestamps[:b.numPackets] }

// Child creates a zero-copy sub-view holding nPkts packets starting at
// firstPkt, sharing the parent's backing array and carrying the aligned
// slice of the parent's timestamp array (spec.md §3: "Sub-view child(first_pkt,
// n_pkts) shares the timestamp slice aligned to first_pkt").
func (b *TSBuffer) Child(firstPkt, nPkts int) *TSBuffer {
	byteOff := firstPkt * b.packetSize
	byteLen := nPkts * b.packetSize
	child := &TSBuffer{
		Buffer:      b.Buffer.Child(byteOff, byteLen),
		packetSize:  b.packetSize,
		numPackets:  nPkts,
		timestamps:  b.timestamps[firstPkt : firstPkt+nPkts],
		firstPacket: firstPkt,
	}
	return child
}

package tsfile

import (
	"errors"
	"io"
	"math"

	"ipcaster/internal/apperr"
	"ipcaster/pkg/buffer"
)

// ApproxReadSize is the target size of a buffered read, rounded down to a
// whole number of TS packets (spec.md §4.2).
const ApproxReadSize = 128 * 1024

// syncSearchChunk is lcm(188,204), the rolling buffer size used to locate
// the initial TS sync pattern (spec.md §4.2).
const syncSearchChunk = 9588

// bitrateComputePCRDistance is the PCR distance threshold (in 27MHz ticks,
// ~3s of stream) that stops bitrate inference (spec.md §4.2).
const bitrateComputePCRDistance = uint64(3 * PCRClockFrequency)

// Parser reads a CBR MPEG-2 TS file, finds sync, infers packet size and
// bitrate from PCR deltas, and yields successive TS buffers with per-packet
// 27MHz send-timestamps assigned from the inferred bitrate. Grounded on
// original_source/src/ipcaster/mpeg2-ts/MPEG2TSFileParser.hpp.
type Parser struct {
	r io.ReadSeeker

	packetSize       int
	syncOffset       int64
	perBufferPackets int

	bitrate                uint64
	estimatedBuffersPerSec uint32
	packetsRead            uint64
}

// NewParser opens a CBR TS stream for reading, locates sync and infers the
// stream's bitrate. Only CBR TS streams including PCRs are supported.
func NewParser(r io.ReadSeeker) (*Parser, error) {
	p := &Parser{r: r}

	if err := p.sync(); err != nil {
		return nil, err
	}
	if err := p.computeBitrate(); err != nil {
		return nil, err
	}

	return p, nil
}

// PacketSize returns the inferred TS packet size, 188 or 204.
func (p *Parser) PacketSize() int { return p.packetSize }

// Bitrate returns the inferred CBR bitrate in bits/second.
func (p *Parser) Bitrate() uint64 { return p.bitrate }

// EstimatedBuffersPerSecond returns max(1, bitrate / bits-per-buffer),
// used to size downstream FIFOs to roughly one second of buffering.
func (p *Parser) EstimatedBuffersPerSecond() uint32 { return p.estimatedBuffersPerSec }

// sync locates the smallest byte offset p such that bytes at p, p+K, p+2K
// are the sync byte for K in {188,204} (188 preferred on a tie), scanning
// forward through the file in syncSearchChunk-sized, overlapping windows
// until found or EOF (spec.md §4.2).
func (p *Parser) sync() error {
	buf := make([]byte, syncSearchChunk)
	var pos int64

	for {
		n, err := io.ReadFull(p.r, buf)
		if n == 0 {
			if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				return apperr.Wrap(apperr.IOFailure, "read while searching for sync", err)
			}
			break
		}

		if found, offset, packetSize := findSyncTriple(buf[:n]); found {
			p.syncOffset = pos + int64(offset)
			p.packetSize = packetSize
			p.perBufferPackets = ApproxReadSize / p.packetSize
			if _, err := p.r.Seek(p.syncOffset, io.SeekStart); err != nil {
				return apperr.Wrap(apperr.IOFailure, "seek to sync offset", err)
			}
			return nil
		}

		if n < len(buf) {
			break // hit EOF without a full chunk and without a match
		}

		const overlap = int64(204 * 3)
		pos += int64(n) - overlap
		if _, err := p.r.Seek(pos, io.SeekStart); err != nil {
			return apperr.Wrap(apperr.IOFailure, "seek while searching for sync", err)
		}
	}

	return apperr.New(apperr.SyncNotFound, "no valid TS sync pattern found")
}

// findSyncTriple scans buf for the smallest offset with a valid 3-packet
// sync run, preferring 188-byte packets on a tie with 204.
func findSyncTriple(buf []byte) (found bool, offset int, packetSize int) {
	limit := len(buf) - 204*3
	for pos := 0; pos < limit; pos++ {
		if buf[pos] != SyncByte {
			continue
		}
		if buf[pos+188] == SyncByte && buf[pos+188*2] == SyncByte {
			return true, pos, PacketSize188
		}
		if buf[pos+204] == SyncByte && buf[pos+204*2] == SyncByte {
			return true, pos, PacketSize204
		}
	}
	return false, 0, 0
}

// computeBitrate consumes successive raw chunks, feeding a PCR filter until
// some PID's PCR spread exceeds bitrateComputePCRDistance or EOF, then infers
// the bitrate from the PID with the largest spread (spec.md §4.2).
func (p *Parser) computeBitrate() error {
	filter := newPCRFilter()

	var offset int64
	var spread uint64

	for spread < bitrateComputePCRDistance {
		data, n, err := p.readRawChunk()
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}

		filter.push(data, p.packetSize, n, offset)
		offset += int64(n * p.packetSize)

		_, s, _, ok := filter.widestPCRSpread()
		if ok {
			spread = s
		}
	}

	_, ticks, bytesDistance, ok := filter.widestPCRSpread()
	if !ok {
		return apperr.New(apperr.BitrateIndeterminate, "not enough PCRs found to compute bitrate")
	}

	p.bitrate = uint64(math.Round(float64(bytesDistance) * 8 * PCRClockFrequency / float64(ticks)))
	perBufferBytes := float64(p.perBufferPackets * p.packetSize * 8)
	p.estimatedBuffersPerSec = uint32(math.Max(1, math.Floor(float64(p.bitrate)/perBufferBytes)))
	p.packetsRead = 0

	if _, err := p.r.Seek(p.syncOffset, io.SeekStart); err != nil {
		return apperr.Wrap(apperr.IOFailure, "rewind after bitrate inference", err)
	}

	return nil
}

// readRawChunk reads up to perBufferPackets packets without assigning
// timestamps (used only during bitrate calibration, before the bitrate is
// known). Returns the raw bytes and the number of whole packets read.
func (p *Parser) readRawChunk() ([]byte, int, error) {
	buf := make([]byte, p.perBufferPackets*p.packetSize)
	n, err := io.ReadFull(p.r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, 0, apperr.Wrap(apperr.IOFailure, "read ts chunk", err)
	}
	numPackets := n / p.packetSize
	return buf, numPackets, nil
}

// Read yields the next TS buffer from the file, with each packet's send
// timestamp assigned from the inferred bitrate (spec.md §4.2):
//
//	t[n] = round(n * packet_size * 8 * 27e6 / bitrate)
//
// Returns a nil buffer (no error) at EOF.
func (p *Parser) Read() (*buffer.TSBuffer, error) {
	data, n, err := p.readRawChunk()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	tsb := buffer.NewTSBuffer(p.perBufferPackets, p.packetSize)
	copy(tsb.Data(), data[:n*p.packetSize])
	tsb.SetNumPackets(n)

	for i := 0; i < n; i++ {
		idx := p.packetsRead + uint64(i)
		ticks := uint64(math.Round(float64(idx) * float64(p.packetSize) * 8 * PCRClockFrequency / float64(p.bitrate)))
		tsb.SetTimestamp(i, ticks)
	}
	p.packetsRead += uint64(n)

	return tsb, nil
}

package tsfile

import (
	"encoding/binary"
	"io"
)

// NullPacket188 is a stuffing TS packet (PID 0x1FFF, no adaptation field,
// payload of 0xFF), grounded on
// original_source/src/ipcaster/mpeg2-ts/MPEG2TS.hpp's TSNULL188.
var NullPacket188 = func() [PacketSize188]byte {
	var pkt [PacketSize188]byte
	pkt[0] = SyncByte
	pkt[1] = 0x1F
	pkt[2] = 0xFF
	pkt[3] = 0x10
	for i := 4; i < PacketSize188; i++ {
		pkt[i] = 0xFF
	}
	return pkt
}()

// BuildTestPacket188 returns a payload-only test packet on PID 0 with the
// given continuity counter, grounded on getTestPacket188.
func BuildTestPacket188(cc byte) [PacketSize188]byte {
	pkt := NullPacket188
	pkt[1] = 0x00 // PID hi = 0
	pkt[2] = 0x00 // PID lo = 0
	pkt[3] = 0x10 | (cc & 0x0F)
	return pkt
}

// BuildPCRPacket188 returns a packet on pid carrying pcr in its adaptation
// field, with the remainder stuffed as payload-less adaptation bytes.
func BuildPCRPacket188(pid uint16, pcr uint64, cc byte) [PacketSize188]byte {
	var pkt [PacketSize188]byte
	pkt[0] = SyncByte
	pkt[1] = byte(pid>>8) & 0x1F
	pkt[2] = byte(pid)
	pkt[3] = 0x20 | (cc & 0x0F) // adaptation field only, no payload
	pkt[4] = PacketSize188 - 5 - 1
	pkt[5] = 0x10 // PCR flag

	base := pcr / 300
	ext := pcr % 300
	v32 := uint32(base >> 1)
	v16 := uint16((base&1)<<15) | uint16(ext) | 0x7E00

	binary.BigEndian.PutUint32(pkt[6:10], v32)
	binary.BigEndian.PutUint16(pkt[10:12], v16)

	for i := 12; i < PacketSize188; i++ {
		pkt[i] = 0xFF
	}
	return pkt
}

// GenTestFile188 writes numPackets payload-only TS packets to w, grounded on
// genTestFile188.
func GenTestFile188(w io.Writer, numPackets int) error {
	for i := 0; i < numPackets; i++ {
		pkt := BuildTestPacket188(byte(i))
		if _, err := w.Write(pkt[:]); err != nil {
			return err
		}
	}
	return nil
}

// GenCBRTestFile188 writes a synthetic CBR TS file to w: numPackets 188-byte
// packets, with a PCR on pcrPID every pcrInterval packets consistent with
// bitrate, so bitrate inference over the file recovers ~bitrate.
func GenCBRTestFile188(w io.Writer, numPackets int, bitrate uint64, pcrPID uint16, pcrInterval int) error {
	ticksPerByte := float64(PCRClockFrequency) * 8 / float64(bitrate)
	var pcr uint64
	for i := 0; i < numPackets; i++ {
		var pkt [PacketSize188]byte
		if i%pcrInterval == 0 {
			pkt = BuildPCRPacket188(pcrPID, pcr%PCRMaxValue, byte(i))
		} else {
			pkt = BuildTestPacket188(byte(i))
		}
		if _, err := w.Write(pkt[:]); err != nil {
			return err
		}
		pcr += uint64(ticksPerByte * PacketSize188)
	}
	return nil
}

// GenCBRTestFile204 is GenCBRTestFile188's 204-byte-packet counterpart: each
// 188-byte packet body is followed by 16 bytes of Reed-Solomon stuffing
// (0xFF), matching the trailing-parity layout real 204-byte-packet capture
// files carry.
func GenCBRTestFile204(w io.Writer, numPackets int, bitrate uint64, pcrPID uint16, pcrInterval int) error {
	ticksPerByte := float64(PCRClockFrequency) * 8 / float64(bitrate)
	var pcr uint64
	for i := 0; i < numPackets; i++ {
		var body [PacketSize188]byte
		if i%pcrInterval == 0 {
			body = BuildPCRPacket188(pcrPID, pcr%PCRMaxValue, byte(i))
		} else {
			body = BuildTestPacket188(byte(i))
		}

		var pkt [PacketSize204]byte
		copy(pkt[:PacketSize188], body[:])
		for j := PacketSize188; j < PacketSize204; j++ {
			pkt[j] = 0xFF
		}

		if _, err := w.Write(pkt[:]); err != nil {
			return err
		}
		pcr += uint64(ticksPerByte * PacketSize204)
	}
	return nil
}

package tsfile

// pcrPosition records where in the file a PCR-bearing packet was found.
type pcrPosition struct {
	pcr      uint64
	position int64
}

// pcrFilter accumulates, per PID, the PCRs seen so far and their byte
// positions in the file, so the parser can pick the PID with the widest PCR
// spread to infer bitrate. Grounded on
// original_source/src/ipcaster/mpeg2-ts/MPEG2TSFilters.hpp's PCRFilter.
type pcrFilter struct {
	byPID map[uint16][]pcrPosition
}

func newPCRFilter() *pcrFilter {
	return &pcrFilter{byPID: make(map[uint16][]pcrPosition)}
}

// push scans the packets in data (packetSize each), recording every PCR
// found. bufferStart is the byte offset of data[0] within the whole file.
func (f *pcrFilter) push(data []byte, packetSize int, numPackets int, bufferStart int64) {
	for i := 0; i < numPackets; i++ {
		pkt := data[i*packetSize : (i+1)*packetSize]
		if !HasPCR(pkt) {
			continue
		}
		pid := PID(pkt)
		f.byPID[pid] = append(f.byPID[pid], pcrPosition{
			pcr:      PCR(pkt),
			position: bufferStart + int64(i*packetSize),
		})
	}
}

// widestPCRSpread returns the PID whose first-to-last PCR distance (in 27MHz
// ticks) is greatest, along with that distance and the corresponding byte
// distance. ok is false if no PID has accumulated at least two PCRs.
func (f *pcrFilter) widestPCRSpread() (pid uint16, pcrTicks uint64, byteDistance int64, ok bool) {
	for p, pcrs := range f.byPID {
		if len(pcrs) < 2 {
			continue
		}
		dist := PCRSub(pcrs[0].pcr, pcrs[len(pcrs)-1].pcr)
		if dist > pcrTicks {
			pid = p
			pcrTicks = dist
			byteDistance = pcrs[len(pcrs)-1].position - pcrs[0].position
			ok = true
		}
	}
	return
}

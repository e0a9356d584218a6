package supervisor

import (
	"bytes"
	"net"
	"os"
	"testing"
	"time"

	"ipcaster/pkg/muxer"
	"ipcaster/pkg/netio"
	"ipcaster/pkg/tsfile"
)

// TestCreateStreamRoundTripsOverRealUDPSocket exercises spec.md §8's E1
// scenario end to end: a file is cast over a real net.ListenUDP socket, its
// datagrams are received and concatenated in arrival order, and the result
// must be byte-identical to the source file. Every prior test in this
// package only exercises the pipeline piecewise (parser, muxer, supervisor);
// this is the only one that opens a live socket and checks reconstructed
// bytes, not just packet/byte counts.
func TestCreateStreamRoundTripsOverRealUDPSocket(t *testing.T) {
	const numPackets = 700 // multiple of smpte2022.PacketsPerDatagram (7): no leftover partial datagram
	var srcBuf bytes.Buffer
	if err := tsfile.GenCBRTestFile188(&srcBuf, numPackets, 4_000_000, 0x100, 50); err != nil {
		t.Fatalf("GenCBRTestFile188: %v", err)
	}

	f, err := os.CreateTemp(t.TempDir(), "roundtrip-*.ts")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if _, err := f.Write(srcBuf.Bytes()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rx, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer rx.Close()
	rxPort := rx.LocalAddr().(*net.UDPAddr).Port

	mux, err := muxer.New(time.Millisecond, time.Millisecond)
	if err != nil {
		t.Fatalf("muxer.New: %v", err)
	}
	defer mux.Close()

	sup := New(mux, true)
	id, err := sup.CreateStream(f.Name(), netio.Endpoint{IP: "127.0.0.1", Port: uint16(rxPort)})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	defer sup.DeleteStream(id, false)

	var got bytes.Buffer
	want := srcBuf.Bytes()
	deadline := time.Now().Add(5 * time.Second)
	packet := make([]byte, 65536)
	for got.Len() < len(want) {
		if err := rx.SetReadDeadline(deadline); err != nil {
			t.Fatalf("SetReadDeadline: %v", err)
		}
		n, _, err := rx.ReadFromUDP(packet)
		if err != nil {
			t.Fatalf("ReadFromUDP: %v (received %d/%d bytes so far)", err, got.Len(), len(want))
		}
		got.Write(packet[:n])
	}

	if !bytes.Equal(got.Bytes(), want) {
		t.Fatalf("reconstructed stream (%d bytes) does not match source file (%d bytes)", got.Len(), len(want))
	}
}

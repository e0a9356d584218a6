package netio

import (
	"net"

	"ipcaster/internal/apperr"
)

// UDPSender owns a single pre-opened IPv4 UDP socket and performs blocking
// sends to arbitrary destinations, one datagram at a time. It is owned
// solely by the muxer's send goroutine, so it requires no internal locking
// (spec.md §5, "UDP socket — owned solely by the send-thread; no lock
// required").
type UDPSender struct {
	conn *net.UDPConn
}

// NewUDPSender opens an IPv4 UDP socket bound to an ephemeral local port.
func NewUDPSender() (*UDPSender, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, apperr.Wrap(apperr.IOFailure, "open udp socket", err)
	}
	return &UDPSender{conn: conn}, nil
}

// Send transmits payload to the given endpoint, blocking until the kernel
// accepts it.
func (s *UDPSender) Send(ep Endpoint, payload []byte) (int, error) {
	addr, err := ep.UDPAddr()
	if err != nil {
		return 0, apperr.Wrap(apperr.IOFailure, "resolve endpoint", err)
	}
	n, err := s.conn.WriteToUDP(payload, addr)
	if err != nil {
		return n, apperr.Wrap(apperr.IOFailure, "send datagram", err)
	}
	return n, nil
}

// Close closes the underlying socket.
func (s *UDPSender) Close() error {
	return s.conn.Close()
}

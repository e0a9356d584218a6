// Package netio holds the wire-level pieces of the engine: the Datagram
// value pushed through the pipeline and the UDPSender that blocks it onto
// the wire. Grounded on original_source/src/ipcaster/net/Datagram.hpp and
// UDPSender.hpp.
package netio

import (
	"net"
	"strconv"
	"time"

	"ipcaster/pkg/buffer"
)

// Endpoint is an IPv4 UDP destination.
type Endpoint struct {
	IP   string
	Port uint16
}

// UDPAddr resolves the endpoint to a *net.UDPAddr.
func (e Endpoint) UDPAddr() (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp4", net.JoinHostPort(e.IP, strconv.Itoa(int(e.Port))))
}

// Datagram is one SMPTE 2022-2 UDP payload with its destination and
// scheduling deadline (spec.md §3). It holds a strong reference to its
// payload buffer, which may be a zero-copy child view into a parser-owned
// chunk (pkg/buffer), so the chunk's backing array outlives every datagram
// carved from it.
type Datagram struct {
	Endpoint Endpoint
	Payload  *buffer.Buffer
	// SendTick is the deadline at which this datagram should leave the
	// host. Before a Muxer-Stream assigns a wall-clock start point it is
	// PCR-relative stream time (spec.md §4.5); the Muxer-Stream overwrites
	// it with a wall-clock time.Time once the datagram becomes eligible.
	SendTick time.Time
}

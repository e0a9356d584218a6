// Package stream ties one file source to one muxer destination and
// republishes the source's terminal events (EOF or error) to an owner,
// grounded on original_source/src/ipcaster/Stream.hpp.
package stream

import (
	"log/slog"
	"sync"

	"ipcaster/pkg/netio"
	"ipcaster/pkg/source"
)

// Listener receives a Stream's terminal events.
type Listener interface {
	OnStreamEnd(id uint32)
	OnStreamError(id uint32, err error)
}

// Stream couples a running FileSource to its muxer destination under a
// single lifecycle: Start/Stop drive the source, and the source's EOF/error
// events are forwarded to a Listener (normally the owning supervisor) on a
// dedicated watcher goroutine.
type Stream struct {
	id       uint32
	source   *source.FileSource
	endpoint netio.Endpoint
	listener Listener

	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a Stream with the given id, wired to src and reporting
// termination to listener. It does not start the source; call Start.
func New(id uint32, src *source.FileSource, endpoint netio.Endpoint, listener Listener) *Stream {
	s := &Stream{id: id, source: src, endpoint: endpoint, listener: listener, stopped: make(chan struct{})}
	go s.watch()
	return s
}

// ID returns the stream's unique identifier.
func (s *Stream) ID() uint32 { return s.id }

// SourceName returns the underlying file source's name (its path).
func (s *Stream) SourceName() string { return s.source.Name() }

// Endpoint returns the stream's UDP destination.
func (s *Stream) Endpoint() netio.Endpoint { return s.endpoint }

// Start launches the underlying source.
func (s *Stream) Start() { s.source.Start() }

// Stop halts the underlying source. If flush is true, buffered datagrams
// are given a chance to be sent before returning. Safe to call once even if
// the stream already ended on its own (Stop no-ops the watcher in that
// case).
func (s *Stream) Stop(flush bool) {
	s.source.Stop(flush)
	s.stopOnce.Do(func() { close(s.stopped) })
}

// watch waits for either the source's terminal event or an explicit Stop,
// forwarding EOF/error to the listener; it never fires both.
func (s *Stream) watch() {
	select {
	case ev := <-s.source.Events():
		switch e := ev.(type) {
		case source.EOFEvent:
			s.listener.OnStreamEnd(s.id)
		case source.ErrorEvent:
			s.listener.OnStreamError(s.id, e.Err)
		default:
			slog.Warn("stream: unknown source event", "id", s.id, "event", e)
		}
	case <-s.stopped:
	}
}

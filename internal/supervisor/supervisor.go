// Package supervisor owns the set of active streams: it opens files, wires
// each one's parser through an encapsulator into a muxer destination, and
// reaps streams whose source has ended or errored. Grounded on
// original_source/src/ipcaster/IPCaster.hpp.
package supervisor

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"ipcaster/internal/apperr"
	"ipcaster/pkg/muxer"
	"ipcaster/pkg/netio"
	"ipcaster/pkg/smpte2022"
	"ipcaster/pkg/source"
	"ipcaster/pkg/stream"
	"ipcaster/pkg/tsfile"
)

// MaxFIFODatagramsPerStream caps a single stream's datagram buffer, "more
// than 1s of buffering at 270Mbps, one TS packet per datagram" per the
// original's MAX_FIFO_DATAGRAMS_PER_STREAM.
const MaxFIFODatagramsPerStream = 180000

// mainLoopTimeout in service mode matches the original's 1000ms; in CLI
// (play-and-exit) mode it uses the tighter 100ms so the process notices an
// unattended stream's EOF promptly.
const (
	serviceLoopTimeout = time.Second
	cliLoopTimeout     = 100 * time.Millisecond
)

// entry bundles everything a Supervisor tracks for one active stream.
type entry struct {
	stream    *stream.Stream
	muxStream *muxer.Stream
	file      *os.File
}

// Info is a read-only snapshot of one stream, for listing/reporting.
type Info struct {
	ID         uint32
	SourceName string
	Endpoint   netio.Endpoint
	StreamTime time.Duration
}

// Supervisor owns the Muxer and every currently-playing Stream, and drives
// the main loop that reaps streams whose source terminated.
type Supervisor struct {
	mux         *muxer.Muxer
	serverMode  bool
	nextID      atomic.Uint32
	tasks       *taskQueue

	mu      sync.Mutex
	entries map[uint32]*entry
}

// New creates a Supervisor sending through mux. serverMode controls the main
// loop's polling interval and whether Run exits once every stream ends.
func New(mux *muxer.Muxer, serverMode bool) *Supervisor {
	return &Supervisor{
		mux:        mux,
		serverMode: serverMode,
		tasks:      newTaskQueue(),
		entries:    make(map[uint32]*entry),
	}
}

// CreateStream opens name, infers its bitrate and framing, and starts
// streaming it to endpoint. Returns the new stream's id.
func (sup *Supervisor) CreateStream(name string, endpoint netio.Endpoint) (uint32, error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, apperr.Wrap(apperr.IOFailure, "open source file", err)
	}

	parser, err := tsfile.NewParser(f)
	if err != nil {
		f.Close()
		return 0, err
	}

	fifoCapacity := int(parser.Bitrate() / (smpte2022.PacketsPerDatagram * 8 * uint64(parser.PacketSize())))
	if fifoCapacity < 1 {
		fifoCapacity = 1
	}
	if fifoCapacity > MaxFIFODatagramsPerStream {
		fifoCapacity = MaxFIFODatagramsPerStream
	}

	muxStream := sup.mux.CreateStream(endpoint, fifoCapacity)
	enc := smpte2022.New(muxStream)
	enc.SetBuffering(parser.EstimatedBuffersPerSecond(), parser.Bitrate())

	src := source.New(name, parser, enc)
	id := sup.nextID.Add(1)
	st := stream.New(id, src, endpoint, sup)

	sup.mu.Lock()
	sup.entries[id] = &entry{stream: st, muxStream: muxStream, file: f}
	sup.mu.Unlock()

	st.Start()
	slog.Info("supervisor: stream started", "id", id, "source", name, "endpoint", endpoint)

	return id, nil
}

// DeleteStream stops and unregisters a stream. If flush is true, its
// already-buffered datagrams are given a chance to be sent first.
func (sup *Supervisor) DeleteStream(id uint32, flush bool) error {
	sup.mu.Lock()
	e, ok := sup.entries[id]
	if ok {
		delete(sup.entries, id)
	}
	sup.mu.Unlock()

	if !ok {
		return apperr.New(apperr.NotFound, "no such stream")
	}

	e.stream.Stop(flush)
	sup.mux.RemoveStream(e.muxStream)
	e.file.Close()

	slog.Info("supervisor: stream deleted", "id", id, "flush", flush)
	return nil
}

// ListStreams returns a snapshot of every currently active stream.
func (sup *Supervisor) ListStreams() []Info {
	sup.mu.Lock()
	defer sup.mu.Unlock()

	infos := make([]Info, 0, len(sup.entries))
	for id, e := range sup.entries {
		infos = append(infos, Info{
			ID:         id,
			SourceName: e.stream.SourceName(),
			Endpoint:   e.stream.Endpoint(),
			StreamTime: e.muxStream.StreamTime(),
		})
	}
	return infos
}

// StreamCount returns the number of currently active streams.
func (sup *Supervisor) StreamCount() int {
	sup.mu.Lock()
	defer sup.mu.Unlock()
	return len(sup.entries)
}

// OnStreamEnd implements stream.Listener: it asynchronously deletes the
// stream so the callback (running on the stream's own watcher goroutine)
// never blocks waiting for that same stream's producer/consumer goroutines
// to exit, mirroring the original's async onStreamEnd/onStreamError.
func (sup *Supervisor) OnStreamEnd(id uint32) {
	sup.tasks.push(func() error { return sup.DeleteStream(id, true) })
}

// OnStreamError implements stream.Listener.
func (sup *Supervisor) OnStreamError(id uint32, err error) {
	slog.Error("supervisor: stream error", "id", id, "err", err)
	sup.tasks.push(func() error { return sup.DeleteStream(id, false) })
}

// Run drives the reap loop until ctx is cancelled, or, outside server mode,
// until every stream has ended.
func (sup *Supervisor) Run(ctx context.Context) error {
	timeout := cliLoopTimeout
	if sup.serverMode {
		timeout = serviceLoopTimeout
	}

	ticker := time.NewTicker(timeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sup.shutdown()
			return ctx.Err()
		case <-ticker.C:
			sup.tasks.collect()
			sup.logStatus()
			if !sup.serverMode && sup.StreamCount() == 0 {
				return nil
			}
		}
	}
}

// shutdown stops every active stream without waiting for buffered data to
// drain, used on process exit.
func (sup *Supervisor) shutdown() {
	sup.mu.Lock()
	ids := make([]uint32, 0, len(sup.entries))
	for id := range sup.entries {
		ids = append(ids, id)
	}
	sup.mu.Unlock()

	for _, id := range ids {
		if err := sup.DeleteStream(id, false); err != nil {
			slog.Error("supervisor: shutdown delete failed", "id", id, "err", err)
		}
	}
}

// logStatus emits one debug line per active stream's progress and the
// muxer's current output bandwidth.
func (sup *Supervisor) logStatus() {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	bitrate, maxGap := sup.mux.OutputBandwidth()
	for _, info := range sup.ListStreams() {
		slog.Debug("supervisor: stream status",
			"id", info.ID, "source", info.SourceName, "streamTime", info.StreamTime,
			"outputBitrate", bitrate, "maxBurstGap", maxGap)
	}
}

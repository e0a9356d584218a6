// Package source implements the producer/consumer pipeline that turns a
// parsed TS file into a stream of buffers pushed to a processor, decoupled
// by a bounded FIFO so file reads never block the datagram pipeline
// directly. Grounded on
// original_source/src/ipcaster/source/{StreamSource.h,FileSource.hpp}.
package source

import (
	"sync"
	"sync/atomic"

	"ipcaster/pkg/buffer"
	"ipcaster/pkg/fifo"
	"ipcaster/pkg/tsfile"
)

// Processor receives the TS buffers a FileSource produces.
type Processor interface {
	Push(tsBuf *buffer.TSBuffer)
	Flush()
}

// EOFEvent is sent once the producer has stopped, at end of file or after
// an ErrorEvent, and the FIFO has been drained to the processor.
type EOFEvent struct{}

// ErrorEvent is sent when the producer goroutine hits a read error; the
// source stops producing after sending it.
type ErrorEvent struct{ Err error }

// FileSource reads a parsed TS file on a producer goroutine and pushes its
// buffers to a Processor on a separate consumer goroutine, so a slow or
// bursty disk never stalls whatever the processor is doing downstream.
type FileSource struct {
	name      string
	parser    *tsfile.Parser
	processor Processor
	fifo      *fifo.FIFO[*buffer.TSBuffer]
	events    chan interface{}

	exit       atomic.Bool
	eofReached atomic.Bool
	started    atomic.Bool
	wg         sync.WaitGroup
}

// New creates a FileSource named name, reading from parser and pushing to
// processor. The FIFO is sized to roughly one second of buffering, per the
// parser's own bitrate estimate.
func New(name string, parser *tsfile.Parser, processor Processor) *FileSource {
	capacity := int(parser.EstimatedBuffersPerSecond())
	if capacity < 1 {
		capacity = 1
	}
	return &FileSource{
		name:      name,
		parser:    parser,
		processor: processor,
		fifo:      fifo.New[*buffer.TSBuffer](capacity),
		events:    make(chan interface{}, 4),
	}
}

// Name returns the source's user-facing name (its file path).
func (s *FileSource) Name() string { return s.name }

// Events returns the channel EOFEvent/ErrorEvent are delivered on.
func (s *FileSource) Events() <-chan interface{} { return s.events }

// Start launches the producer and consumer goroutines.
func (s *FileSource) Start() {
	if !s.started.CompareAndSwap(false, true) {
		panic("source: Start called more than once")
	}
	s.wg.Add(2)
	go s.produce()
	go s.consume()
}

// Stop halts both goroutines and waits for them to exit. If flush is true,
// the processor is given a chance to emit whatever it has buffered before
// Stop returns.
func (s *FileSource) Stop(flush bool) {
	s.exit.Store(true)
	s.fifo.UnblockProducer(true)
	s.fifo.UnblockConsumer(true)
	s.wg.Wait()

	if flush {
		s.processor.Flush()
	}
}

// produce reads successive buffers from the parser and pushes them onto the
// FIFO until EOF, an error, or Stop.
func (s *FileSource) produce() {
	defer s.wg.Done()

	for !s.exit.Load() {
		buf, err := s.parser.Read()
		if err != nil {
			s.eofReached.Store(true)
			s.fifo.UnblockConsumer(true)
			s.events <- ErrorEvent{Err: err}
			return
		}
		if buf == nil {
			s.eofReached.Store(true)
			s.fifo.UnblockConsumer(true)
			return
		}
		s.fifo.Push(buf)
	}
}

// consume drains the FIFO to the processor until Stop or EOF-and-drained.
func (s *FileSource) consume() {
	defer s.wg.Done()

	for !s.exit.Load() {
		if n := s.fifo.WaitReadAvailable(); n > 0 {
			s.processor.Push(s.fifo.Front())
			s.fifo.Pop()
			continue
		}
		if s.eofReached.Load() {
			s.exit.Store(true)
			s.events <- EOFEvent{}
			return
		}
	}
}

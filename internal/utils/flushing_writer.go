package utils

import (
	"io"
	"sync"
)

type flusher interface {
	Flush() error
}

// FlushingWriter serializes writes and flushes buffered destinations after every write, so report rows
// and log lines from concurrently reconciled repositories reach the terminal whole and in order.
type FlushingWriter struct {
	mutex       sync.Mutex
	destination io.Writer
	flush       func() error
}

// NewFlushingWriter wraps writer. A nil writer yields nil and an existing FlushingWriter is returned as is.
func NewFlushingWriter(writer io.Writer) io.Writer {
	switch typedWriter := writer.(type) {
	case nil:
		return nil
	case *FlushingWriter:
		return typedWriter
	case flusher:
		return &FlushingWriter{destination: writer, flush: typedWriter.Flush}
	default:
		return &FlushingWriter{destination: writer}
	}
}

// Write writes data and flushes the destination when it buffers.
func (flushingWriter *FlushingWriter) Write(data []byte) (int, error) {
	if flushingWriter == nil || flushingWriter.destination == nil {
		return 0, nil
	}
	flushingWriter.mutex.Lock()
	defer flushingWriter.mutex.Unlock()

	written, writeError := flushingWriter.destination.Write(data)
	if writeError != nil || flushingWriter.flush == nil {
		return written, writeError
	}
	return written, flushingWriter.flush()
}

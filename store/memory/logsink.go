package memory

import (
	"context"
	"sync"
)

// LogSink accumulates audit blobs in append order
type LogSink struct {
	mu    sync.Mutex
	blobs [][]byte
	fail  error
}

// NewLogSink creates an empty sink
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Append stores a copy of blob
func (s *LogSink) Append(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.blobs = append(s.blobs, append([]byte(nil), blob...))
	return nil
}

// ReadAll returns copies of every appended blob
func (s *LogSink) ReadAll(_ context.Context) ([][]byte, error) {
	return s.Blobs(), nil
}

// Blobs returns copies of every appended blob
func (s *LogSink) Blobs() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.blobs))
	for i, b := range s.blobs {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

// Len returns the number of appended blobs
func (s *LogSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// Fail makes every Append return err until called again with nil
func (s *LogSink) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

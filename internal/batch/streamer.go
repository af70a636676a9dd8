// Package batch splits a list of media paths into fixed-size batches.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// DefaultSize is the number of paths per batch.
	DefaultSize = 4
	// DefaultDelay throttles batch production between yields.
	DefaultDelay = 50 * time.Millisecond
)

// ErrInvalidBatchSize is returned for batch sizes below one.
var ErrInvalidBatchSize = errors.New("batch size must be at least 1")

// Batch is an ordered, non-empty slice of paths consumed once.
type Batch []string

// Streamer lazily yields batches of at most size paths from the front of the remaining input.
// It is forward-only and cannot be restarted.
type Streamer struct {
	remaining []string
	size      int
	delay     time.Duration
	clock     clock.Clock

	yielded int
	err     error
}

// NewStreamer copies paths and returns a Streamer over them. A nil clock uses the wall clock.
func NewStreamer(paths []string, size int, delay time.Duration, clk clock.Clock) (*Streamer, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, size)
	}
	if delay < 0 {
		delay = 0
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Streamer{
		remaining: append([]string(nil), paths...),
		size:      size,
		delay:     delay,
		clock:     clk,
	}, nil
}

// Next returns the next batch, or false once the input is exhausted or ctx is done.
// Every batch after the first is preceded by the configured delay.
func (s *Streamer) Next(ctx context.Context) (Batch, bool) {
	if s.err != nil || len(s.remaining) == 0 {
		return nil, false
	}

	if s.yielded > 0 && s.delay > 0 {
		timer := s.clock.Timer(s.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.err = ctx.Err()
			return nil, false
		}
	} else if err := ctx.Err(); err != nil {
		s.err = err
		return nil, false
	}

	n := s.size
	if n > len(s.remaining) {
		n = len(s.remaining)
	}
	batch := Batch(s.remaining[:n:n])
	s.remaining = s.remaining[n:]
	s.yielded++

	return batch, true
}

// Err returns the context error that ended the stream early, if any.
func (s *Streamer) Err() error {
	return s.err
}

// Remaining reports how many paths have not been yielded yet.
func (s *Streamer) Remaining() int {
	return len(s.remaining)
}

// Yielded reports how many batches have been produced.
func (s *Streamer) Yielded() int {
	return s.yielded
}

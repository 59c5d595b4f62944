package usecase

import (
	"context"
	"sync/atomic"
)

// AtomicSequence is an in-process Sequence.
type AtomicSequence struct {
	n atomic.Int64
}

// NewAtomicSequence returns a sequence whose first value is 1.
func NewAtomicSequence() *AtomicSequence {
	return &AtomicSequence{}
}

// Next increments and returns the counter.
func (s *AtomicSequence) Next(context.Context) (int64, error) {
	return s.n.Add(1), nil
}

// Current returns the last value handed out, 0 if none.
func (s *AtomicSequence) Current() int64 {
	return s.n.Load()
}

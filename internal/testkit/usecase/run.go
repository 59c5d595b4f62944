package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"mongo-testkit/internal/testkit/domain/model"
	"mongo-testkit/internal/testkit/domain/repository"
)

// Run owns the state shared by every provisioner of one test run: the run
// timestamp, fixed on first use, and the two counters.
type Run struct {
	now       func() time.Time
	once      sync.Once
	timestamp string

	databases repository.Sequence
	fallback  repository.Sequence
}

// RunOption configures a Run.
type RunOption func(*Run)

// WithClock replaces time.Now for the run timestamp.
func WithClock(now func() time.Time) RunOption {
	return func(r *Run) { r.now = now }
}

// WithDatabaseSequence replaces the in-process database counter.
func WithDatabaseSequence(seq repository.Sequence) RunOption {
	return func(r *Run) { r.databases = seq }
}

// WithFallbackSequence replaces the in-process collection fallback counter.
func WithFallbackSequence(seq repository.Sequence) RunOption {
	return func(r *Run) { r.fallback = seq }
}

// NewRun creates an independent run. Most suites share DefaultRun instead.
func NewRun(opts ...RunOption) *Run {
	r := &Run{
		now:       time.Now,
		databases: NewAtomicSequence(),
		fallback:  NewAtomicSequence(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultRunOnce sync.Once
	defaultRun     *Run
)

// DefaultRun is the process-wide run.
func DefaultRun() *Run {
	defaultRunOnce.Do(func() {
		defaultRun = NewRun()
	})
	return defaultRun
}

// Timestamp returns the run timestamp, capturing it on first call.
func (r *Run) Timestamp() string {
	r.once.Do(func() {
		r.timestamp = model.FormatRunTimestamp(r.now())
	})
	return r.timestamp
}

// NextIdentity reserves the next database identity of this run.
func (r *Run) NextIdentity(ctx context.Context) (model.RunIdentity, error) {
	ts := r.Timestamp()
	n, err := r.databases.Next(ctx)
	if err != nil {
		return model.RunIdentity{}, fmt.Errorf("failed to reserve database counter: %w", err)
	}
	return model.RunIdentity{Timestamp: ts, Counter: n}, nil
}

// NextFallback returns the next collection prefix for callers whose identity could not be determined.
func (r *Run) NextFallback(ctx context.Context) (string, error) {
	n, err := r.fallback.Next(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to reserve collection fallback counter: %w", err)
	}
	return strconv.FormatInt(n, 10), nil
}

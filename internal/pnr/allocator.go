// Package pnr hands out reservation identifiers.
//
// In random mode an id is drawn uniformly from [Min, Max] and redrawn while
// it collides with a live reservation.  After MaxRetries collisions the
// allocator stops drawing and switches to a counter that starts above Max,
// so allocation always terminates even when the random space is full.  In
// sequential mode every id comes from the counter, starting at Min.
//
// The allocator does not remember what it issued; uniqueness comes from the
// exists check, which the caller must run under the same lock as the ledger
// insert.
package pnr

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Mode selects how ids are generated.
type Mode string

const (
	ModeRandom     Mode = "random"
	ModeSequential Mode = "sequential"
)

// Options configures an Allocator.  Rand may be nil, in which case
// math/rand/v2 is used.
type Options struct {
	Min        int
	Max        int
	MaxRetries int
	Mode       Mode
	Rand       func(n int) int
}

// ExistsFunc reports whether pnr is held by a live reservation.
type ExistsFunc func(ctx context.Context, pnr int) (bool, error)

// Allocator is safe for concurrent use, but two concurrent callers can be
// given the same id unless their allocate-and-insert sequences are
// serialized by the caller.
type Allocator struct {
	opts    Options
	counter atomic.Int64
}

// New validates opts and returns an Allocator.
func New(opts Options) (*Allocator, error) {
	if opts.Mode == "" {
		opts.Mode = ModeRandom
	}
	if opts.Min <= 0 || opts.Max < opts.Min {
		return nil, fmt.Errorf("pnr: invalid range [%d, %d]", opts.Min, opts.Max)
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 32
	}
	if opts.Rand == nil {
		opts.Rand = rand.IntN
	}
	a := &Allocator{opts: opts}
	switch opts.Mode {
	case ModeRandom:
		a.counter.Store(int64(opts.Max))
	case ModeSequential:
		a.counter.Store(int64(opts.Min - 1))
	default:
		return nil, fmt.Errorf("pnr: unknown mode %q", opts.Mode)
	}
	return a, nil
}

// Observe raises the counter so that it never issues n or anything below
// it.  Used at startup with the highest pnr already persisted.
func (a *Allocator) Observe(n int) {
	for {
		cur := a.counter.Load()
		if int64(n) <= cur || a.counter.CompareAndSwap(cur, int64(n)) {
			return
		}
	}
}

// Allocate returns an id for which exists reports false.
func (a *Allocator) Allocate(ctx context.Context, exists ExistsFunc) (int, error) {
	if a.opts.Mode == ModeRandom {
		span := a.opts.Max - a.opts.Min + 1
		for i := 0; i < a.opts.MaxRetries; i++ {
			n := a.opts.Min + a.opts.Rand(span)
			taken, err := exists(ctx, n)
			if err != nil {
				return 0, fmt.Errorf("pnr: check %d: %w", n, err)
			}
			if !taken {
				return n, nil
			}
		}
		log.WithField("retries", a.opts.MaxRetries).Warn("pnr: random draws exhausted, falling back to counter")
	}
	return a.sequential(ctx, exists)
}

func (a *Allocator) sequential(ctx context.Context, exists ExistsFunc) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n := int(a.counter.Add(1))
		taken, err := exists(ctx, n)
		if err != nil {
			return 0, fmt.Errorf("pnr: check %d: %w", n, err)
		}
		if !taken {
			return n, nil
		}
	}
}

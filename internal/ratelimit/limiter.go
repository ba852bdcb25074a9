// Package ratelimit provides token-bucket admission control shared by all
// agents. One bucket serves the whole account because the upstream quota is
// account-wide. Cancel orders are admitted from a priority lane so that
// cancellation is never starved by a backlog of new submissions.
package ratelimit

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// Lane selects the admission queue for a job.
type Lane int

const (
	LaneNormal Lane = iota
	LaneCancel
)

// ErrClosed is returned by Admit after Close.
var ErrClosed = errors.New("rate limiter closed")

type waiter struct {
	ready chan struct{}
	ctx   context.Context
}

// Limiter serializes all admission decisions through a single pump goroutine.
// Waiters queue FIFO within their lane; the pump acquires a token first and
// only then picks who gets it, so a cancel that arrives while the pump is
// still waiting for the token is served ahead of any queued non-cancel.
type Limiter struct {
	bucket *rate.Limiter

	mu         sync.Mutex
	cancelLane []*waiter
	normalLane []*waiter

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a limiter refilling at perMinute/60 tokens per second with the
// given burst capacity, and starts its pump.
func New(perMinute float64, burst int) *Limiter {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Limiter{
		bucket: rate.NewLimiter(rate.Limit(perMinute/60.0), burst),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go l.pump()
	return l
}

// Admit blocks until a token is granted, the caller's context is done, or the
// limiter is closed. Cost is always one token. Tokens are not refunded if the
// admitted call later fails: the upstream request was actually made.
func (l *Limiter) Admit(ctx context.Context, lane Lane) error {
	w := &waiter{ready: make(chan struct{}), ctx: ctx}

	l.mu.Lock()
	if lane == LaneCancel {
		l.cancelLane = append(l.cancelLane, w)
	} else {
		l.normalLane = append(l.normalLane, w)
	}
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ctx.Done():
		return ErrClosed
	}
}

// Close stops the pump. Pending waiters are released with ErrClosed.
func (l *Limiter) Close() {
	l.cancel()
	<-l.done
}

func (l *Limiter) pump() {
	defer close(l.done)
	for {
		if !l.pending() {
			select {
			case <-l.wake:
			case <-l.ctx.Done():
				return
			}
			continue
		}
		if err := l.bucket.Wait(l.ctx); err != nil {
			return
		}
		// Token in hand. The grant decision is made now, not before the
		// wait, so a cancel queued during the wait takes this token.
		// Abandoned waiters are skipped without consuming anything; if
		// everyone gave up during the wait, the token is simply spent.
		for {
			w := l.next()
			if w == nil {
				break
			}
			if w.ctx.Err() != nil {
				continue
			}
			close(w.ready)
			break
		}
	}
}

func (l *Limiter) pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cancelLane) > 0 || len(l.normalLane) > 0
}

// next pops the head of the cancel lane, falling back to the normal lane.
func (l *Limiter) next() *waiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.cancelLane) > 0 {
		w := l.cancelLane[0]
		l.cancelLane = l.cancelLane[1:]
		return w
	}
	if len(l.normalLane) > 0 {
		w := l.normalLane[0]
		l.normalLane = l.normalLane[1:]
		return w
	}
	return nil
}

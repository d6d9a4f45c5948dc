package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter spaces out outbound requests so the service stays polite towards
// target sites. Wait blocks until the next request may be sent.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Jittered enforces a randomized delay window between consecutive actions.
type Jittered struct {
	mu         sync.Mutex
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
}

func NewJittered(minDelay, maxDelay time.Duration) *Jittered {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Jittered{minDelay: minDelay, maxDelay: maxDelay}
}

func (j *Jittered) Wait(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	delay := j.minDelay
	if j.maxDelay > j.minDelay {
		delay += time.Duration(rand.Int63n(int64(j.maxDelay - j.minDelay)))
	}

	if elapsed := time.Since(j.lastAction); elapsed < delay {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay - elapsed):
		}
	}

	j.lastAction = time.Now()
	return nil
}

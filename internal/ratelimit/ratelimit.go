// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit paces outbound requests per source so each
// database's request-frequency ceiling is respected.
// Implements: prd003-pacing (R1-R3);
//
//	docs/ARCHITECTURE § Request Pacing.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/bioscout/pkg/types"
)

// Clock abstracts time so tests pace without real delays (R3.1).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock is the production Clock.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Limiter throttles requests per source. One Limiter is shared by all
// concurrent callers; acquisition is safe under concurrent use (R2.1).
// Bursts are serialized, never rejected (R1.2).
type Limiter struct {
	mu       sync.Mutex
	limiters map[types.Source]*rate.Limiter
	clock    Clock
}

// New builds a Limiter from the per-source ceilings in limits. A zero
// or negative ceiling falls back to the conservative default for that
// source.
func New(limits types.SourceLimits, clock Clock) *Limiter {
	if clock == nil {
		clock = realClock{}
	}
	defaults := types.DefaultSourceLimits()
	if limits.PubMed <= 0 {
		limits.PubMed = defaults.PubMed
	}
	if limits.BioRxiv <= 0 {
		limits.BioRxiv = defaults.BioRxiv
	}
	if limits.EuropePMC <= 0 {
		limits.EuropePMC = defaults.EuropePMC
	}

	return &Limiter{
		limiters: map[types.Source]*rate.Limiter{
			types.SourcePubMed:    rate.NewLimiter(rate.Limit(limits.PubMed), 1),
			types.SourceBioRxiv:   rate.NewLimiter(rate.Limit(limits.BioRxiv), 1),
			types.SourceEuropePMC: rate.NewLimiter(rate.Limit(limits.EuropePMC), 1),
		},
		clock: clock,
	}
}

// Acquire blocks until a request slot for source is available or ctx
// is done. It reserves a token against the injected clock and sleeps
// out the reservation delay, so tests observe exact pacing (R1.1, R3.1).
func (l *Limiter) Acquire(ctx context.Context, source types.Source) error {
	l.mu.Lock()
	lim, ok := l.limiters[source]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("no rate limit configured for source %q", source)
	}

	res := lim.ReserveN(l.clock.Now(), 1)
	if !res.OK() {
		return fmt.Errorf("rate limiter for %q cannot satisfy request", source)
	}

	delay := res.DelayFrom(l.clock.Now())
	if err := l.clock.Sleep(ctx, delay); err != nil {
		res.CancelAt(l.clock.Now())
		return err
	}
	return nil
}

// SetLimit replaces the ceiling for source, in requests per second.
// Used when an API key raises the published limit (R1.3).
func (l *Limiter) SetLimit(source types.Source, perSecond float64) {
	if perSecond <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[source]; ok {
		lim.SetLimit(rate.Limit(perSecond))
	}
}

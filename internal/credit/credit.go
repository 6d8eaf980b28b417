// Package credit simulates the external credit agencies consulted when a
// customer is created. A fixed pool of concurrent probes each returns a
// bounded random score after a bounded random delay; the scores are reduced
// to their truncated integer mean. A probe that misses the deadline fails
// the whole computation — a partial average is never accepted.
package credit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrScoreTimeout is returned when any probe fails to report within the
// configured timeout.
var ErrScoreTimeout = errors.New("credit score check timed out")

const (
	// MinScore and MaxScore bound every individual probe result and
	// therefore the reduced score.
	MinScore = 1
	MaxScore = 999

	defaultAgencies = 5
	defaultMaxDelay = 300 * time.Millisecond
	defaultTimeout  = 10 * time.Second
)

// Checker fans out scoring probes. The zero value is not usable; construct
// with NewChecker.
type Checker struct {
	agencies int
	maxDelay time.Duration
	timeout  time.Duration
	seed     int64
	probe    func(ctx context.Context, rng *rand.Rand) (int, error)
}

// Option configures a Checker.
type Option func(*Checker)

// WithAgencies sets the number of concurrent probes.
func WithAgencies(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.agencies = n
		}
	}
}

// WithMaxDelay bounds the simulated per-probe latency.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Checker) { c.maxDelay = d }
}

// WithTimeout bounds how long the reduction waits for all probes.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) { c.timeout = d }
}

// WithSeed makes the probe delays and scores deterministic. Without it the
// checker seeds from the wall clock.
func WithSeed(seed int64) Option {
	return func(c *Checker) { c.seed = seed }
}

// withProbe swaps the probe implementation. Test hook.
func withProbe(probe func(ctx context.Context, rng *rand.Rand) (int, error)) Option {
	return func(c *Checker) { c.probe = probe }
}

// NewChecker builds a checker with the given options.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		agencies: defaultAgencies,
		maxDelay: defaultMaxDelay,
		timeout:  defaultTimeout,
		seed:     time.Now().UnixNano(),
	}
	c.probe = c.agencyProbe
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// agencyProbe is one simulated agency: sleep a uniform random delay in
// [0, maxDelay), then report a uniform score in [MinScore, MaxScore].
func (c *Checker) agencyProbe(ctx context.Context, rng *rand.Rand) (int, error) {
	if c.maxDelay > 0 {
		delay := time.Duration(rng.Int63n(int64(c.maxDelay)))
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return MinScore + rng.Intn(MaxScore-MinScore+1), nil
}

// Score runs all probes concurrently and returns the truncated integer
// mean of their results. Any probe error, a timeout, or context
// cancellation fails the whole computation.
func (c *Checker) Score(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		score int
		err   error
	}
	results := make(chan result, c.agencies)

	// One worker per probe; each gets its own rand source so the draws are
	// independent and reproducible under a fixed seed.
	root := rand.New(rand.NewSource(c.seed))
	for i := 0; i < c.agencies; i++ {
		rng := rand.New(rand.NewSource(root.Int63()))
		go func() {
			score, err := c.probe(ctx, rng)
			results <- result{score: score, err: err}
		}()
	}

	sum := 0
	for i := 0; i < c.agencies; i++ {
		select {
		case r := <-results:
			if r.err != nil {
				if errors.Is(r.err, context.DeadlineExceeded) {
					return 0, fmt.Errorf("%w after %s", ErrScoreTimeout, c.timeout)
				}
				return 0, r.err
			}
			sum += r.score
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return 0, fmt.Errorf("%w after %s", ErrScoreTimeout, c.timeout)
			}
			return 0, ctx.Err()
		}
	}
	return sum / c.agencies, nil
}

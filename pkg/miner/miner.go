package miner

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vanitydag/vanityd/pkg/hashpattern"
)

var (
	// ErrInvalidTargetBits ...
	ErrInvalidTargetBits = errors.New(
		"target bits must be in range [1, 64]",
	)
	// ErrInvalidMaxIterations ...
	ErrInvalidMaxIterations = errors.New("max iterations must be positive")
	// ErrMissingCandidateBuilder ...
	ErrMissingCandidateBuilder = errors.New(
		"either a candidate builder or an envelope template must be given",
	)
	// ErrInvalidWorkers ...
	ErrInvalidWorkers = errors.New("workers must not be negative")
)

const (
	defaultProgressInterval = time.Second

	// cancellation is only checked every checkCancelEvery iterations to keep
	// the hot loop free of synchronization.
	checkCancelEvery = 256
)

// CandidateBuilder embeds the given nonce into a payload and returns the
// hex-encoded identifier of the resulting candidate transaction or envelope.
// It must be deterministic: the same nonce always yields the same id.
type CandidateBuilder func(nonce uint64) (string, error)

// BatchPolicy derives the number of iterations per batch from the requested
// difficulty. Batching is a scheduling courtesy, not a correctness knob:
// progress reports and cancellation checks happen at batch boundaries.
type BatchPolicy func(targetBits int) int

// DefaultBatchPolicy groups iterations in larger batches for harder targets.
// The table is a tuning heuristic and can be replaced wholesale via Config.
func DefaultBatchPolicy(targetBits int) int {
	switch {
	case targetBits <= 8:
		return 100
	case targetBits <= 16:
		return 1000
	default:
		return 5000
	}
}

// Progress is handed to the observer at every report interval. Reporting is
// a notification, not a handshake: a search that succeeds before the first
// interval elapses never reports at all.
type Progress struct {
	Attempts            uint64
	Elapsed             time.Duration
	IterationsPerSecond float64
	PercentOfExpected   float64
}

// Result is the immutable outcome of a search. Success false means the
// iteration ceiling was reached without a match, which is an expected
// outcome of a probabilistic search, not an error.
type Result struct {
	Success             bool
	ID                  string
	Nonce               uint64
	Attempts            uint64
	Duration            time.Duration
	IterationsPerSecond float64
	EfficiencyRatio     float64
	BestPartialBits     int
}

// Config is the struct given to the Search method.
type Config struct {
	// TargetBits is the required number of trailing zero bits.
	TargetBits int
	// BuildCandidate derives the candidate id for a nonce. Leave nil to use
	// the envelope template fields below.
	BuildCandidate CandidateBuilder
	// Version, ContractType and PayloadTemplate describe the default
	// envelope candidate: the nonce is appended to the template as a
	// fixed-width 8-byte little-endian suffix.
	Version         byte
	ContractType    []byte
	PayloadTemplate []byte
	// StartNonce seeds the search. Two runs with identical config and start
	// accept the same nonce.
	StartNonce uint64
	// MaxIterations is the attempt ceiling.
	MaxIterations uint64
	// BatchSize overrides the batch policy when positive.
	BatchSize int
	// BatchPolicy derives the batch size from TargetBits when BatchSize is
	// zero. Defaults to DefaultBatchPolicy.
	BatchPolicy BatchPolicy
	// ProgressInterval is the report cadence. Defaults to one second.
	ProgressInterval time.Duration
	// OnProgress observes the search. May be nil.
	OnProgress func(Progress)
	// Workers is the number of parallel scanners. Zero means one.
	Workers int
}

func (c *Config) validate() error {
	if c.TargetBits <= 0 || c.TargetBits > hashpattern.MaxTrailingZeroBits {
		return ErrInvalidTargetBits
	}
	if c.MaxIterations <= 0 {
		return ErrInvalidMaxIterations
	}
	if c.BuildCandidate == nil && len(c.ContractType) <= 0 {
		return ErrMissingCandidateBuilder
	}
	if c.Workers < 0 {
		return ErrInvalidWorkers
	}
	return nil
}

func (c *Config) candidateBuilder() CandidateBuilder {
	if c.BuildCandidate != nil {
		return c.BuildCandidate
	}
	return EnvelopeCandidateBuilder(c.Version, c.ContractType, c.PayloadTemplate)
}

func (c *Config) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	policy := c.BatchPolicy
	if policy == nil {
		policy = DefaultBatchPolicy
	}
	return policy(c.TargetBits)
}

func (c *Config) progressInterval() time.Duration {
	if c.ProgressInterval > 0 {
		return c.ProgressInterval
	}
	return defaultProgressInterval
}

func (c *Config) workers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

type match struct {
	nonce uint64
	id    string
}

type chunkOutcome struct {
	attempts    uint64
	bestPartial int
	match       *match
	err         error
}

// Search iterates nonces from StartNonce upward, first-fit, until a
// candidate id satisfies the trailing-zero pattern or the ceiling is
// reached. Workers scan disjoint contiguous chunks per round so no nonce is
// tested twice and the accepted nonce is the lowest matching one for a
// given start, regardless of worker count.
func Search(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var (
		build        = cfg.candidateBuilder()
		batchSize    = uint64(cfg.batchSize())
		workers      = cfg.workers()
		interval     = cfg.progressInterval()
		expected     = math.Pow(2, float64(cfg.TargetBits))
		startedAt    = time.Now()
		lastReport   = startedAt
		attempts     uint64
		bestPartial  int
		roundMatches []match
	)

	log.Debugf(
		"miner: searching %d trailing zero bits from nonce %d (ceiling %d, batch %d, workers %d)",
		cfg.TargetBits, cfg.StartNonce, cfg.MaxIterations, batchSize, workers,
	)

	nextNonce := cfg.StartNonce
	remaining := cfg.MaxIterations

	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		roundMatches = roundMatches[:0]
		outcomes := make([]chunkOutcome, workers)
		wg := &sync.WaitGroup{}

		roundNonce := nextNonce
		for i := 0; i < workers && remaining > 0; i++ {
			chunk := batchSize
			if chunk > remaining {
				chunk = remaining
			}
			wg.Add(1)
			go func(slot int, from, count uint64) {
				defer wg.Done()
				outcomes[slot] = scanChunk(ctx, build, cfg.TargetBits, from, count)
			}(i, roundNonce, chunk)

			roundNonce += chunk
			remaining -= chunk
		}
		wg.Wait()

		for _, outcome := range outcomes {
			if outcome.err != nil {
				return nil, outcome.err
			}
			attempts += outcome.attempts
			if outcome.bestPartial > bestPartial {
				bestPartial = outcome.bestPartial
			}
			if outcome.match != nil {
				roundMatches = append(roundMatches, *outcome.match)
			}
		}
		nextNonce = roundNonce

		if len(roundMatches) > 0 {
			accepted := roundMatches[0]
			for _, m := range roundMatches[1:] {
				if m.nonce < accepted.nonce {
					accepted = m
				}
			}
			return newResult(cfg, true, accepted, attempts, bestPartial, expected, startedAt), nil
		}

		if cfg.OnProgress != nil && time.Since(lastReport) >= interval {
			elapsed := time.Since(startedAt)
			cfg.OnProgress(Progress{
				Attempts:            attempts,
				Elapsed:             elapsed,
				IterationsPerSecond: iterationsPerSecond(attempts, elapsed),
				PercentOfExpected:   float64(attempts) / expected * 100,
			})
			lastReport = time.Now()
		}
	}

	return newResult(cfg, false, match{}, attempts, bestPartial, expected, startedAt), nil
}

// scanChunk tests the contiguous nonce range [from, from+count) and stops at
// the first match, which is necessarily the lowest matching nonce of the
// chunk.
func scanChunk(
	ctx context.Context, build CandidateBuilder, targetBits int,
	from, count uint64,
) chunkOutcome {
	outcome := chunkOutcome{}

	for i := uint64(0); i < count; i++ {
		if i%checkCancelEvery == 0 && ctx.Err() != nil {
			return outcome
		}

		nonce := from + i
		id, err := build(nonce)
		if err != nil {
			outcome.err = err
			return outcome
		}
		outcome.attempts++
		attemptsCounter.Inc()

		if hashpattern.Matches(id, targetBits) {
			matchesCounter.Inc()
			outcome.match = &match{nonce: nonce, id: id}
			return outcome
		}
		if partial := hashpattern.TrailingZeroBits(id); partial > outcome.bestPartial {
			outcome.bestPartial = partial
		}
	}
	return outcome
}

func newResult(
	cfg Config, success bool, accepted match,
	attempts uint64, bestPartial int, expected float64, startedAt time.Time,
) *Result {
	duration := time.Since(startedAt)
	result := &Result{
		Success:             success,
		Attempts:            attempts,
		Duration:            duration,
		IterationsPerSecond: iterationsPerSecond(attempts, duration),
		EfficiencyRatio:     float64(attempts) / expected,
		BestPartialBits:     bestPartial,
	}
	if success {
		result.ID = accepted.id
		result.Nonce = accepted.nonce
		result.BestPartialBits = cfg.TargetBits
		log.Debugf(
			"miner: found %s at nonce %d after %d attempts",
			accepted.id, accepted.nonce, attempts,
		)
		return result
	}

	log.Debugf(
		"miner: ceiling of %d iterations reached, best partial match %d bits",
		cfg.MaxIterations, bestPartial,
	)
	return result
}

func iterationsPerSecond(attempts uint64, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(attempts) / secs
}

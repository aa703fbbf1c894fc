package qalarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

/*
Sampler executes a program repeatedly and tabulates the recorded outcomes.
Shots are cut into batches and spread over a bounded set of workers; every
shot runs on its own register, so the only shared state is the final merge.
*/
type Sampler struct {
	config  *Config
	metrics *Metrics
}

// NewSampler falls back to NewConfig and NewMetrics for nil arguments.
func NewSampler(config *Config, metrics *Metrics) *Sampler {
	if config == nil {
		config = NewConfig()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	return &Sampler{
		config:  config,
		metrics: metrics,
	}
}

func (s *Sampler) Config() *Config   { return s.config }
func (s *Sampler) Metrics() *Metrics { return s.metrics }

// Simulate evaluates the safety rule for one pair of readings with the
// default configuration.
func Simulate(gasOk, tempOk int) (Counts, error) {
	return NewSampler(nil, nil).Run(context.Background(), gasOk, tempOk)
}

// Run samples the safety rule Config.Shots times.
func (s *Sampler) Run(ctx context.Context, gasOk, tempOk int) (Counts, error) {
	return s.RunShots(ctx, gasOk, tempOk, s.config.Shots)
}

// RunShots samples the safety rule for the given readings. It returns either
// a table whose counts sum to shots or an error, never a partial table.
func (s *Sampler) RunShots(ctx context.Context, gasOk, tempOk, shots int) (counts Counts, err error) {
	startTime := time.Now()
	defer func() {
		s.metrics.recordRun(startTime, counts, err)
	}()

	if shots <= 0 {
		return nil, fmt.Errorf("%w: shots must be positive, got %d", ErrInvalidArgument, shots)
	}

	program, err := NewSafetyProgram(gasOk, tempOk)
	if err != nil {
		return nil, err
	}

	counts, err = s.Sample(ctx, program, shots)
	if err != nil {
		return nil, err
	}

	logger.Debug("sampled safety rule", "gas", gasOk, "temperature", tempOk, "shots", shots, "counts", counts.String())
	return counts, nil
}

// Sample executes program shots times and returns the outcome counts.
func (s *Sampler) Sample(ctx context.Context, program *Program, shots int) (Counts, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("%w: shots must be positive, got %d", ErrInvalidArgument, shots)
	}

	batchSize := max(s.config.BatchSize, 1)
	batches := (shots + batchSize - 1) / batchSize
	workers := min(max(s.config.Workers, 1), batches)

	jobs := make(chan shotJob)
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)

		for id, remaining := 0, shots; remaining > 0; id++ {
			n := min(remaining, batchSize)
			select {
			case jobs <- shotJob{ID: id, Shots: n}:
			case <-gCtx.Done():
				return gCtx.Err()
			}
			remaining -= n
		}
		return nil
	})

	var mu sync.Mutex
	counts := make(Counts)

	for i := 0; i < workers; i++ {
		w := &Worker{ID: i, program: program, jobs: jobs}

		g.Go(func() error {
			partial, err := w.run(gCtx)
			if err != nil {
				return err
			}

			mu.Lock()
			counts.Merge(partial)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if total := counts.Total(); total != shots {
		return nil, fmt.Errorf("sampled %d shots, expected %d", total, shots)
	}

	return counts, nil
}

package qalarm

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
)

// Worker executes shot batches against its own fresh registers and keeps a
// partial frequency table that the sampler merges once the worker drains.
type Worker struct {
	ID      int
	program *Program
	jobs    <-chan shotJob
}

func (w *Worker) run(ctx context.Context) (Counts, error) {
	partial := make(Counts)

	for job := range w.jobs {
		for i := 0; i < job.Shots; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			reg, err := w.program.Run()
			if err != nil {
				return nil, fmt.Errorf("worker %d, batch %d, shot %d: %w", w.ID, job.ID, i, err)
			}

			if job.ID == 0 && i == 0 && logger.GetLevel() <= log.DebugLevel {
				logger.Debug("first shot", "worker", w.ID, "outcome", reg.Outcome(), "register", reg.Dump())
			}

			partial[reg.Outcome()]++
		}
	}

	return partial, nil
}

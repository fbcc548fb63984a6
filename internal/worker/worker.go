package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/siasic/seismic-watch/internal/models"
)

// Batch is one unit of catalog work: a group of events from a single
// refresh or dataset load, persisted together off the polling path.
type Batch struct {
	Source string
	Events []models.SeismicEvent
}

type ProcessFunc func(ctx context.Context, batch Batch) error

type WorkerPool struct {
	numWorkers int
	jobs       chan Batch
	processor  ProcessFunc
	wg         sync.WaitGroup
}

func NewWorkerPool(numWorkers int, bufferSize int, processor ProcessFunc) *WorkerPool {
	return &WorkerPool{
		numWorkers: numWorkers,
		jobs:       make(chan Batch, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-wp.jobs:
			if !ok {
				return
			}
			if err := wp.processor(ctx, batch); err != nil {
				slog.Error("batch processing failed",
					"worker", id,
					"source", batch.Source,
					"events", len(batch.Events),
					"error", err)
			}
		}
	}
}

func (wp *WorkerPool) Submit(batch Batch) {
	wp.jobs <- batch
}

func (wp *WorkerPool) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
}

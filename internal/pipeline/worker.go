package pipeline

import (
	"context"
	"sync"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// ProductFunc processes a single product within a batch run.
type ProductFunc func(ctx context.Context, product domain.Product) error

// Failure records a product that could not be processed.
type Failure struct {
	ProductID int64
	Err       error
}

// Report summarises a batch run.
type Report struct {
	Processed int
	Failures  []Failure
}

// Pool fans a product list out over a fixed number of workers.
type Pool struct {
	name        string
	workerCount int
}

// NewPool creates a worker pool. A worker count below 1 is treated as 1.
func NewPool(name string, workerCount int) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{name: name, workerCount: workerCount}
}

// Run calls fn for every product. One product's failure never aborts the
// others; failures are collected in the report. Run returns ctx.Err() if
// the context is cancelled before every product was enqueued.
func (p *Pool) Run(ctx context.Context, products []domain.Product, fn ProductFunc) (Report, error) {
	jobChan := make(chan domain.Product, len(products))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		report Report
	)

	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for product := range jobChan {
				err := fn(ctx, product)

				mu.Lock()
				if err != nil {
					report.Failures = append(report.Failures, Failure{ProductID: product.ID, Err: err})
				} else {
					report.Processed++
				}
				mu.Unlock()

				if err != nil {
					log.Warn().
						Err(err).
						Str("pipeline", p.name).
						Int("worker", workerID).
						Int64("product_id", product.ID).
						Msg("product processing failed")
				}
			}
		}(i)
	}

	var enqueueErr error
enqueue:
	for _, product := range products {
		select {
		case <-ctx.Done():
			enqueueErr = ctx.Err()
			break enqueue
		case jobChan <- product:
		}
	}
	close(jobChan)

	wg.Wait()

	log.Debug().
		Str("pipeline", p.name).
		Int("processed", report.Processed).
		Int("failed", len(report.Failures)).
		Msg("batch run finished")

	return report, enqueueErr
}

package linker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/abitools/abilinker/abi"
	"github.com/abitools/abilinker/abi/dump"
)

// SourcesPerBatch is the number of dumps a worker claims at a time.
const SourcesPerBatch = 7

// Ingester reads many dumps concurrently and merges them into one graph.
//
// Workers claim fixed-size batches of paths from a shared atomic counter and
// merge every dump they read into a private graph. When no batch is left, a
// worker merges its private graph into the result under a single mutex. The
// calling goroutine is always one of the workers.
type Ingester struct {
	reader dump.Reader
	logger logrus.FieldLogger

	// BatchSize is the number of paths claimed at once.
	BatchSize int
	// MaxWorkers caps the number of workers, the caller included.
	MaxWorkers int
}

// NewIngester returns an Ingester reading dumps with r.
func NewIngester(r dump.Reader, logger logrus.FieldLogger) *Ingester {
	return &Ingester{
		reader:     r,
		logger:     logger,
		BatchSize:  SourcesPerBatch,
		MaxWorkers: runtime.GOMAXPROCS(0),
	}
}

// Workers returns how many workers, the caller included, ingest n dumps:
// min(n/BatchSize, MaxWorkers) when n exceeds one batch, otherwise 1. With
// n <= BatchSize no goroutine is started and the caller reads everything.
// The count includes the caller, so at most Workers(n)-1 goroutines run
// beside it.
func (in *Ingester) Workers(n int) int {
	batch := in.batchSize()
	workers := 1
	if batch < n {
		workers = n / batch
		if in.MaxWorkers > 0 && workers > in.MaxWorkers {
			workers = in.MaxWorkers
		}
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

func (in *Ingester) batchSize() int {
	if in.BatchSize < 1 {
		return SourcesPerBatch
	}
	return in.BatchSize
}

// Ingest reads every path and returns the merged graph. The first read
// error stops all workers and is returned; no partial graph is returned.
func (in *Ingester) Ingest(ctx context.Context, paths []string) (*abi.Graph, error) {
	var (
		global   = abi.NewGraph()
		globalMx sync.Mutex
		counter  atomic.Uint64
		batch    = uint64(in.batchSize())
		total    = uint64(len(paths))
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wg, wctx := errgroup.WithContext(ctx)

	work := func(worker int) error {
		local := abi.NewGraph()
		read := 0
		for {
			start := counter.Add(batch) - batch
			if start >= total {
				break
			}
			end := start + batch
			if end > total {
				end = total
			}
			for _, path := range paths[start:end] {
				if err := wctx.Err(); err != nil {
					return err
				}
				unit, err := in.reader.ReadDump(path)
				if err != nil {
					return fmt.Errorf("failed to read dump %s: %w", path, err)
				}
				local.Merge(unit)
				read++
			}
		}

		globalMx.Lock()
		global.Merge(local)
		globalMx.Unlock()

		in.logger.WithFields(logrus.Fields{
			"worker": worker,
			"dumps":  read,
		}).Debug("Ingestion worker finished")
		return nil
	}

	workers := in.Workers(len(paths))
	for i := 1; i < workers; i++ {
		i := i
		wg.Go(func() error { return work(i) })
	}

	callerErr := work(0)
	if callerErr != nil {
		cancel()
	}
	waitErr := wg.Wait()

	// A cancelled worker only reports the failure of a sibling or of the
	// caller's context, so the root cause takes precedence.
	switch {
	case waitErr != nil && !errors.Is(waitErr, context.Canceled):
		return nil, waitErr
	case callerErr != nil:
		return nil, callerErr
	case waitErr != nil:
		return nil, waitErr
	}
	return global, nil
}

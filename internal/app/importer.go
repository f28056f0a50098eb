package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

type ImportFailure struct {
	Index int
	Err   error
}

type ImportReport struct {
	Imported int
	Failed   []ImportFailure
}

// ImportService feeds externally produced review records through the
// workflow so every record passes the same validation as API writes.
type ImportService struct {
	reviews *ReviewService
}

func NewImportService(reviews *ReviewService) *ImportService {
	return &ImportService{reviews: reviews}
}

// Import upserts records with at most workers calls in flight.
func (s *ImportService) Import(ctx context.Context, records []map[string]any, workers int) (ImportReport, error) {
	if workers <= 0 {
		workers = 1
	}
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		rep ImportReport
	)
	fail := func(i int, err error) {
		mu.Lock()
		rep.Failed = append(rep.Failed, ImportFailure{Index: i, Err: err})
		mu.Unlock()
	}

	for i, rec := range records {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return rep, err
		}

		wg.Add(1)
		go func(i int, rec map[string]any) {
			defer wg.Done()
			defer sem.Release(1)

			r, err := mapImportRecord(rec)
			if err != nil {
				log.Warn().Int("index", i).Err(err).Msg("skipping malformed record")
				fail(i, err)
				return
			}
			if _, err := s.reviews.Upsert(ctx, r); err != nil {
				log.Warn().Int("index", i).Int64("pos_id", r.PosID).Err(err).Msg("import failed")
				fail(i, err)
				return
			}
			mu.Lock()
			rep.Imported++
			mu.Unlock()
		}(i, rec)
	}

	wg.Wait()
	return rep, nil
}

package analyzer

import (
	"context"
	"fmt"
	"sync"
)

// AnalyzeBatch analyzes every buffer on the pool and returns results in input
// order. If any buffer fails, the error of the lowest failing index is returned
// with no results. Jobs that start after ctx is done are skipped and ctx's
// error is returned. A nil or closed pool runs jobs inline.
func AnalyzeBatch(ctx context.Context, pool *WorkerPool, d Detector, bufs []*PixelBuffer, t ThresholdTable) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, len(bufs))
	errs := make([]error, len(bufs))

	var wg sync.WaitGroup
	for i, buf := range bufs {
		i, buf := i, buf
		wg.Add(1)
		job := func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[i], errs[i] = d.Analyze(buf, t)
		}
		if pool == nil || !pool.Submit(job) {
			job()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
	}
	return results, nil
}

package ingest

import (
	"runtime"
	"sync"

	"github.com/inodb/packbed/internal/bed"
)

// batchSize is the number of record lines handed to a worker at once.
const batchSize = 512

// lineBatch is a run of consecutive record lines. Record is the 0-based
// record number of the first line.
type lineBatch struct {
	Seq    int
	Record int
	Lines  []string
}

// parsed is the normalization outcome of one line.
type parsed struct {
	Record     int
	Transcript *bed.Transcript
	Err        error
}

// parsedBatch carries the outcomes of one lineBatch, in line order.
type parsedBatch struct {
	Seq     int
	Records []parsed
}

// normalizeBatches parses batches on a pool of workers. Batches arrive on
// the returned channel in completion order; use collectBatches to restore
// line order. If workers is 0, runtime.NumCPU() is used.
func normalizeBatches(batches <-chan lineBatch, workers int, cdsOnly bool) <-chan parsedBatch {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make(chan parsedBatch, workers)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range batches {
				recs := make([]parsed, len(b.Lines))
				for i, line := range b.Lines {
					t, err := bed.Parse(line, cdsOnly)
					recs[i] = parsed{Record: b.Record + i, Transcript: t, Err: err}
				}
				out <- parsedBatch{Seq: b.Seq, Records: recs}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// collectBatches calls fn for every record in line order. Batches that
// complete early wait in a pending map until their predecessors arrive.
// On error the remaining batches are drained so workers can exit.
func collectBatches(in <-chan parsedBatch, fn func(parsed) error) error {
	pending := make(map[int][]parsed)
	next := 0

	for b := range in {
		pending[b.Seq] = b.Records
		for recs, ok := pending[next]; ok; recs, ok = pending[next] {
			delete(pending, next)
			next++
			for _, r := range recs {
				if err := fn(r); err != nil {
					for range in {
					}
					return err
				}
			}
		}
	}
	return nil
}

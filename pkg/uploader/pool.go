package uploader

import "sync"

// DefaultWorkers is the worker count used when the caller does not supply
// one.
const DefaultWorkers = 4

// BatchOptions configures one batch dispatch.
type BatchOptions struct {
	ParentID string
	Workers  int

	// ConfigPath and ParametersPath feed the parameters injection; empty
	// or missing files just skip the injection.
	ConfigPath     string
	ParametersPath string
}

// UploadBatch fans the units out across a fixed pool of workers, each
// running the full per-file protocol to completion before picking up the
// next unit. Every submitted unit yields exactly one result; result order is
// not related to input order.
func (e *Engine) UploadBatch(units []*FileUnit, opts BatchOptions) []Result {
	units = e.maybeInjectParameters(units, opts)

	workers := opts.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	if workers > len(units) {
		workers = len(units)
	}

	jobs := make(chan *FileUnit)
	out := make(chan Result, len(units))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range jobs {
				out <- e.Upload(unit, opts.ParentID)
			}
		}()
	}

	for _, unit := range units {
		jobs <- unit
	}
	close(jobs)

	// Full barrier before anyone classifies: the result list must be
	// exhaustive.
	wg.Wait()
	close(out)

	results := make([]Result, 0, len(units))
	for r := range out {
		results = append(results, r)
	}
	return results
}

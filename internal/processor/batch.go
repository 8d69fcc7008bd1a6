package processor

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"squeeze/internal/encode"
	"squeeze/internal/media"
	"squeeze/internal/optimizer"
	"squeeze/internal/outpath"
	"squeeze/internal/settings"
)

// Processor handles a single file.
type Processor interface {
	Process(ctx context.Context, d *media.Descriptor, stop *StopSignal) Result
}

// RunOptions are fixed for the duration of one run.
type RunOptions struct {
	Settings            settings.Output
	FromMultiSelectRoot bool
	ForPreview          bool
}

// OrchestratorOptions configure an Orchestrator. All fields are optional.
type OrchestratorOptions struct {
	// Workers overrides the settings and the CPU-derived default.
	Workers   int
	Codec     encode.Codec
	Collector Collector
	Updates   chan<- ProgressUpdate
	Logger    zerolog.Logger
}

// Orchestrator fans a FrameProcessor out over a file set with bounded
// concurrency.
type Orchestrator struct {
	opts OrchestratorOptions

	newProcessor func(RunOptions) (Processor, error)

	mu      sync.Mutex
	current *StopSignal
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	o := &Orchestrator{opts: opts}
	o.newProcessor = func(run RunOptions) (Processor, error) {
		return NewFrameProcessor(Config{
			Settings:            run.Settings,
			FromMultiSelectRoot: run.FromMultiSelectRoot,
			ForPreview:          run.ForPreview,
			Codec:               opts.Codec,
			Optimizer:           optimizer.New(run.Settings.Optimizers, opts.Logger),
			Logger:              opts.Logger,
		})
	}
	return o
}

// DefaultWorkers is half the CPUs, at least one. Codecs parallelise
// internally, so one file per core oversubscribes.
func DefaultWorkers() int {
	n := runtime.NumCPU() / 2
	if n < 1 {
		return 1
	}
	return n
}

// Stop cancels the run in progress, if any. Files already admitted stop at
// their next checkpoint; files not yet admitted are reported Cancelled.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current.Stop()
}

// Run processes files and returns the summary once every admitted file has
// finished. Each file's Result is sent on results, when non-nil, from the
// worker that produced it; the caller must keep draining it until Run returns.
// Excluded descriptors are skipped and not counted. Files sharing a destination
// run in order and every successful write after the first carries
// FileOverwritten. Configuration errors that would fail every file are
// returned before any file is touched.
func (o *Orchestrator) Run(ctx context.Context, files []*media.Descriptor, run RunOptions, results chan<- Result) (Summary, error) {
	if err := outpath.Preflight(run.Settings); err != nil {
		return Summary{}, err
	}
	proc, err := o.newProcessor(run)
	if err != nil {
		return Summary{}, err
	}

	stop := &StopSignal{}
	o.mu.Lock()
	o.current = stop
	o.mu.Unlock()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			stop.Stop()
		case <-done:
		}
	}()

	workers := o.opts.Workers
	if workers <= 0 {
		workers = run.Settings.Workers
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	gate := semaphore.NewWeighted(int64(workers))

	var total, succeeded, failed, cancelled atomic.Int64
	var saved atomic.Int64

	record := func(res Result) {
		update := ProgressUpdate{ProcessedDelta: 1, WarningDelta: len(res.Warnings)}
		switch {
		case res.Succeeded:
			succeeded.Add(1)
			update.BytesSavedDelta = res.OriginalSize - res.CompressedSize
			saved.Add(update.BytesSavedDelta)
		case res.Error == Cancelled:
			cancelled.Add(1)
		default:
			failed.Add(1)
			update.ErrorDelta = 1
		}
		if c := o.opts.Collector; c != nil {
			c.AddError(res.Error, res.Descriptor, res.Err)
			for _, w := range res.Warnings {
				c.AddWarning(w, res.Descriptor)
			}
		}
		if o.opts.Updates != nil {
			o.opts.Updates <- update
		}
		if results != nil {
			results <- res
		}
	}

	var queued []*media.Descriptor
	for _, d := range files {
		if !d.Excluded() {
			queued = append(queued, d)
		}
	}
	total.Store(int64(len(queued)))
	if o.opts.Updates != nil {
		o.opts.Updates <- ProgressUpdate{TotalDelta: len(queued)}
	}
	units := groupByDestination(queued, run)
	o.opts.Logger.Info().Int("files", len(queued)).Int("workers", workers).Msg("run started")

	var wg sync.WaitGroup
	for _, unit := range units {
		if len(unit) > 1 {
			o.opts.Logger.Warn().Int("files", len(unit)).Str("first", unit[0].SourcePath).
				Msg("outputs share a destination, later files overwrite earlier ones")
		}
		if stop.Stopped() {
			for _, d := range unit {
				record(Result{Descriptor: d, Error: Cancelled, Err: errStopped, OriginalSize: d.Size})
			}
			continue
		}
		if err := gate.Acquire(ctx, 1); err != nil {
			stop.Stop()
			for _, d := range unit {
				record(Result{Descriptor: d, Error: Cancelled, Err: err, OriginalSize: d.Size})
			}
			continue
		}

		wg.Add(1)
		go func(unit []*media.Descriptor) {
			defer wg.Done()
			defer gate.Release(1)
			written := false
			for _, d := range unit {
				res := proc.Process(ctx, d, stop)
				if res.Succeeded {
					if written && !res.HasWarning(FileOverwritten) {
						res.Warnings = append(res.Warnings, FileOverwritten)
					}
					written = true
				}
				record(res)
			}
		}(unit)
	}
	wg.Wait()

	summary := Summary{
		Total:      int(total.Load()),
		Succeeded:  int(succeeded.Load()),
		Failed:     int(failed.Load()),
		Cancelled:  int(cancelled.Load()),
		BytesSaved: saved.Load(),
	}
	o.opts.Logger.Info().
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("cancelled", summary.Cancelled).
		Int64("bytes_saved", summary.BytesSaved).
		Msg("run finished")
	return summary, nil
}

// groupByDestination batches files whose outputs land on the same path so they
// run one after another in a single slot. Order of first appearance is kept.
func groupByDestination(files []*media.Descriptor, run RunOptions) [][]*media.Descriptor {
	var units [][]*media.Descriptor
	index := make(map[string]int, len(files))
	for _, d := range files {
		dest, err := outpath.Destination(d, run.Settings, run.FromMultiSelectRoot, run.ForPreview)
		if err != nil {
			units = append(units, []*media.Descriptor{d})
			continue
		}
		key := filepath.Clean(dest)
		if i, ok := index[key]; ok {
			units[i] = append(units[i], d)
			continue
		}
		index[key] = len(units)
		units = append(units, []*media.Descriptor{d})
	}
	return units
}

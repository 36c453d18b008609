package splithttp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tanq16/splitdl/internal/scheduler"
	"github.com/tanq16/splitdl/internal/utils"
)

// Downloader coordinates probe, plan, preallocation, fetch and digest for one
// file at a time. It is safe to call Run concurrently.
type Downloader struct {
	client utils.HTTPDoer
	sink   utils.EventSink
}

func NewDownloader(client utils.HTTPDoer, sink utils.EventSink) *Downloader {
	if sink == nil {
		sink = utils.NopSink
	}
	return &Downloader{client: client, sink: sink}
}

func (d *Downloader) Run(ctx context.Context, cfg utils.DownloadConfig) utils.DownloadOutcome {
	startTime := time.Now()
	outcome := utils.DownloadOutcome{JobID: uuid.NewString(), URL: cfg.URL, FileName: cfg.OutputPath}
	finish := func(err error) utils.DownloadOutcome {
		outcome.Err = err
		outcome.Duration = time.Since(startTime)
		event := d.event(utils.EventFailed, outcome)
		if err == nil {
			event = d.event(utils.EventCompleted, outcome)
		}
		event.Err = err
		d.sink.Emit(event)
		return outcome
	}

	if err := cfg.Validate(); err != nil {
		return finish(err)
	}

	info, err := Probe(ctx, d.client, cfg.URL)
	if err != nil {
		return finish(err)
	}
	outcome.FileName = utils.ResolveFileName(cfg.OutputPath, cfg.URL, info.FileName)
	outcome.Size = info.Size
	probed := d.event(utils.EventProbed, outcome)
	probed.Ranged = info.SupportsRanges
	d.sink.Emit(probed)

	plan, err := Plan(info.Size, cfg.Workers, info.SupportsRanges)
	if err != nil {
		return finish(err)
	}
	planned := d.event(utils.EventPlanned, outcome)
	planned.Workers = plan.Workers
	planned.Ranged = plan.SupportsRanges
	d.sink.Emit(planned)

	if err := utils.Preallocate(outcome.FileName, plan.TotalSize); err != nil {
		return finish(utils.NewError(utils.IOError, "preallocate", err))
	}
	d.sink.Emit(d.event(utils.EventPreallocated, outcome))

	results := d.fetchAll(ctx, cfg, outcome, plan)
	if err := firstFailure(results); err != nil {
		return finish(err)
	}

	digest, err := utils.FileDigest(outcome.FileName)
	if err != nil {
		return finish(utils.NewError(utils.IOError, "digest", err))
	}
	outcome.Digest = digest
	return finish(nil)
}

// fetchAll returns only after every chunk has resolved. A lone chunk runs on
// the calling goroutine.
func (d *Downloader) fetchAll(ctx context.Context, cfg utils.DownloadConfig, outcome utils.DownloadOutcome, plan utils.DownloadPlan) []utils.ChunkResult {
	limiter := NewLimiter(cfg.RateLimit)
	requests := make([]ChunkRequest, len(plan.Chunks))
	for i, chunk := range plan.Chunks {
		requests[i] = ChunkRequest{
			JobID:      outcome.JobID,
			URL:        cfg.URL,
			OutputPath: outcome.FileName,
			Range:      chunk,
			Ranged:     plan.SupportsRanges,
			TotalSize:  plan.TotalSize,
			Timeout:    cfg.ChunkTimeout,
			Limiter:    limiter,
		}
	}
	if len(requests) == 1 {
		return []utils.ChunkResult{FetchChunk(ctx, d.client, requests[0], d.sink)}
	}
	tasks := make([]scheduler.Task[utils.ChunkResult], len(requests))
	for i, cr := range requests {
		tasks[i] = func(ctx context.Context) utils.ChunkResult {
			return FetchChunk(ctx, d.client, cr, d.sink)
		}
	}
	return scheduler.Run(ctx, tasks, plan.Workers)
}

// firstFailure reports the failed chunk with the lowest index, so the
// reported reason does not depend on completion order.
func firstFailure(results []utils.ChunkResult) error {
	for _, result := range results {
		if result.Err != nil {
			return result.Err
		}
	}
	return nil
}

func (d *Downloader) event(kind utils.EventKind, outcome utils.DownloadOutcome) utils.Event {
	return utils.Event{
		Kind:     kind,
		JobID:    outcome.JobID,
		FileName: outcome.FileName,
		Chunk:    -1,
		Total:    outcome.Size,
		Digest:   outcome.Digest,
		Time:     time.Now(),
	}
}

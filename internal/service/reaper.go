package service

import (
	"context"
	"log/slog"
	"time"

	"avatarlab.app/studio/common/logger"
	"avatarlab.app/studio/core/config"
	"avatarlab.app/studio/internal/bus"
	"avatarlab.app/studio/internal/store"
)

const expiredJobReason = "generation timed out"

// JobReaper fails pending jobs whose worker never called back. Without it a
// lost callback would leave the job pending forever and the client spinner
// spinning with it.
type JobReaper struct {
	jobStore store.JobStore
	bus      bus.Client
	ttl      time.Duration
	interval time.Duration
}

func NewJobReaper(jobStore store.JobStore, busClient bus.Client, cfg config.JobsConfig) *JobReaper {
	ttl := cfg.PendingTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &JobReaper{
		jobStore: jobStore,
		bus:      busClient,
		ttl:      ttl,
		interval: interval,
	}
}

// Run sweeps until the context is canceled. Meant to be started as a
// goroutine from the composition root.
func (r *JobReaper) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "studio.reaper"})
	slog.InfoContext(ctx, "job reaper started", "ttl", r.ttl, "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "job reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep fails every pending job older than the TTL and publishes a failure
// event for each, so open clients see the job die instead of hanging.
func (r *JobReaper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.ttl)
	expired, err := r.jobStore.FailExpired(ctx, cutoff, expiredJobReason)
	if err != nil {
		slog.ErrorContext(ctx, "job expiry sweep failed", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	slog.InfoContext(ctx, "expired pending jobs", "count", len(expired))
	for i := range expired {
		r.bus.Publish(ctx, bus.ChannelJobs, bus.JobFailed, jobPayload(&expired[i]))
	}
}

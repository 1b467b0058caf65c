package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/FasterSpeeding/PTF/internal/jobs"
	"github.com/FasterSpeeding/PTF/internal/link"
)

// LinkPurgeJob removes message links whose expiry has passed.
type LinkPurgeJob struct {
	Manager *link.Manager
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskLinkPurge tasks.
func (j *LinkPurgeJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j.Manager == nil {
		return nil
	}
	tracker := j.Metrics.Track("link_purge")
	purged, err := j.Manager.PurgeExpired(ctx)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("purge expired links", slog.Any("error", err))
		}
		return tracker.End(err)
	}
	if j.Logger != nil && purged > 0 {
		j.Logger.Info("purged expired links", slog.Int64("count", purged))
	}
	return tracker.End(nil)
}

package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLinkPurge is the task type for removing expired message links.
	TaskLinkPurge = "links:purge"
	// LinkPurgeCron schedules the expired-link purge every ten minutes.
	LinkPurgeCron = "*/10 * * * *"
)

// NewLinkPurgeTask constructs an Asynq task. The purge carries no payload;
// the handler sweeps whatever is expired at run time.
func NewLinkPurgeTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskLinkPurge, nil), nil
}

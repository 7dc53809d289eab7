package queue

import (
	"context"
	"log/slog"
)

// LogPublisher stands in for the broker when RABBITMQ_URL is unset. It only
// records what would have been sent; notification data is never logged.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishGeneration(ctx context.Context, task GenerationTask) error {
	p.logger.InfoContext(ctx, "generation task not queued, no broker configured",
		"story_id", task.StoryID.String(),
		"user_id", task.UserID.String(),
		"stage", task.Stage,
	)
	return nil
}

func (p *LogPublisher) PublishNotification(ctx context.Context, n Notification) error {
	p.logger.InfoContext(ctx, "notification not queued, no broker configured",
		"channel", n.Channel,
		"template", n.Template,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

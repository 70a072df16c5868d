package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/juda1804/youtube-community-sync/app/channel"
	"github.com/juda1804/youtube-community-sync/app/ingest"
)

// RedeliverTask retries webhook delivery for posts persisted during a run
// whose delivery never succeeded
type RedeliverTask struct {
	Task
	ChannelConfig *channel.Config
	pipeline      *ingest.Pipeline
}

func NewRedeliverTask(channelName string, channelConfig *channel.Config, pipeline *ingest.Pipeline) *RedeliverTask {
	return &RedeliverTask{
		Task:          NewTask(TaskTypeRedeliver, channelName),
		ChannelConfig: channelConfig,
		pipeline:      pipeline,
	}
}

func (t *RedeliverTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	delivered, err := t.pipeline.Redeliver(ctx, t.ChannelName, t.ChannelConfig.Settings.RedeliverLimit)
	if err != nil {
		slog.Error("Task failed", "type", "Redeliver", "channel", t.ChannelName, "error", err)
		return fmt.Errorf("failed to redeliver posts: %w", err)
	}

	if delivered == 0 {
		slog.Debug("No undelivered posts", "channel", t.ChannelName)
		return nil
	}

	slog.Info("Task completed",
		"type", "Redeliver",
		"channel", t.ChannelName,
		"delivered", delivered,
		"duration", t.GetDuration())

	return nil
}

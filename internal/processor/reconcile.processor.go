package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nimasrn/live-commerce/internal/model"
	"github.com/nimasrn/live-commerce/internal/queue"
	"github.com/nimasrn/live-commerce/pkg/logger"
)

var ErrInvalidJob = errors.New("invalid job payload")

// TriggerFunc asks for a pass over one video.
type TriggerFunc func(ctx context.Context, videoID, trigger string) error

// ReconcileProcessor handles "reconcile now" jobs published by the API.
type ReconcileProcessor struct {
	trigger TriggerFunc
}

func NewReconcileProcessor(trigger TriggerFunc) *ReconcileProcessor {
	return &ReconcileProcessor{trigger: trigger}
}

func (p *ReconcileProcessor) GetType() string {
	return string(model.JobReconcile)
}

func (p *ReconcileProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var job model.LiveJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	job.VideoID = strings.TrimSpace(job.VideoID)
	if job.VideoID == "" {
		return fmt.Errorf("%w: missing video_id", ErrInvalidJob)
	}

	logger.Debug("Reconcile job received",
		"message_id", msg.ID,
		"video_id", job.VideoID,
		"attempt", msg.Attempts,
		"requested_at", job.RequestedAt)

	// a failed pass has already been notified; the job is acked so it is not replayed
	if err := p.trigger(ctx, job.VideoID, "job"); err != nil {
		logger.Warn("Reconcile job finished with error", "message_id", msg.ID, "video_id", job.VideoID, "error", err)
	}
	return nil
}

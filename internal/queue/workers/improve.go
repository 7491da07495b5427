package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/promptdeck/promptdeck/internal/identity"
	"github.com/promptdeck/promptdeck/internal/improve"
	"github.com/promptdeck/promptdeck/internal/queue"
)

// ImproveWorker runs queued feedback analyses with the enqueueing
// caller's identity restored, so ownership checks behave exactly as in
// the synchronous path.
type ImproveWorker struct {
	svc *improve.Service
}

func NewImproveWorker(svc *improve.Service) *ImproveWorker {
	return &ImproveWorker{svc: svc}
}

func (w *ImproveWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.AnalyzeFeedbackPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	promptID, err := uuid.Parse(payload.PromptID)
	if err != nil {
		return fmt.Errorf("invalid prompt ID: %w", err)
	}
	versionID, err := uuid.Parse(payload.VersionID)
	if err != nil {
		return fmt.Errorf("invalid version ID: %w", err)
	}
	callerID, err := uuid.Parse(payload.CallerID)
	if err != nil {
		return fmt.Errorf("invalid caller ID: %w", err)
	}

	ctx = identity.WithCaller(ctx, identity.Caller{ID: callerID, Source: "worker"})

	suggestions, err := w.svc.Analyze(ctx, promptID, versionID)
	if err != nil {
		return fmt.Errorf("analyze version %s: %w", versionID, err)
	}

	slog.Info("queued analysis complete", "version_id", versionID, "suggestions", len(suggestions))
	return nil
}

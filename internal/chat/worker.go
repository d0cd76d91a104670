package chat

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// JobRunner executes queued send jobs through the Dispatcher.
type JobRunner struct {
	repo       *Repo
	dispatcher *Dispatcher
	logger     *zap.Logger
	slowAfter  time.Duration
}

func NewJobRunner(repo *Repo, dispatcher *Dispatcher, logger *zap.Logger) *JobRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobRunner{repo: repo, dispatcher: dispatcher, logger: logger, slowAfter: 2 * time.Second}
}

// Handle runs one job. A job that is unknown or already claimed is skipped
// without error so redelivered messages are harmless. The returned error
// is non-nil only when the job could not be recorded as finished.
func (r *JobRunner) Handle(ctx context.Context, jobID string) error {
	jobStart := time.Now()

	claimed, err := r.repo.UpdateJobStatusRunning(ctx, jobID)
	if err != nil {
		return fmt.Errorf("claim job %s: %w", jobID, err)
	}
	if !claimed {
		r.logger.Info("job skipped, not queued", zap.String("job_id", jobID))
		return nil
	}

	j, err := r.repo.GetJobByID(ctx, jobID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}

	t0 := time.Now()
	res, sendErr := r.dispatcher.Send(ctx, j.UserID, SendRequest{
		SessionID: j.SessionID,
		Content:   j.Content,
		System:    j.System,
	})
	genCost := time.Since(t0)

	if sendErr != nil {
		if err := r.repo.MarkJobFailed(context.WithoutCancel(ctx), jobID, sendErr.Error()); err != nil {
			return fmt.Errorf("mark job %s failed: %w", jobID, err)
		}
		r.logger.Warn("job failed",
			zap.String("job_id", jobID),
			zap.Duration("gen", genCost),
			zap.Duration("total", time.Since(jobStart)),
			zap.Error(sendErr),
		)
		return nil
	}

	if err := r.repo.MarkJobSucceeded(ctx, jobID, res.Assistant.ID); err != nil {
		return fmt.Errorf("mark job %s succeeded: %w", jobID, err)
	}

	if total := time.Since(jobStart); total > r.slowAfter {
		r.logger.Info("job timing",
			zap.String("job_id", jobID),
			zap.Duration("gen", genCost),
			zap.Duration("total", total),
		)
	}
	return nil
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/gemini-chat/internal/common"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %w", what, common.ErrNotFound)
	}
	return err
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	if s.ID == "" {
		id, err := common.NewULID()
		if err != nil {
			return err
		}
		s.ID = id
	}
	return r.db.WithContext(ctx).Create(s).Error
}

// GetOwnedSession finds a session by id and owner. A session owned by
// someone else is reported exactly like a missing one.
func (r *Repo) GetOwnedSession(ctx context.Context, userID uint64, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&s).Error; err != nil {
		return nil, notFound("session", err)
	}
	return &s, nil
}

// ListSessions returns the user's sessions, most recently updated first.
func (r *Repo) ListSessions(ctx context.Context, userID uint64) ([]Session, error) {
	sessions := []Session{}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Order("id DESC").
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateOwnedSession applies updates and returns the fresh row.
func (r *Repo) UpdateOwnedSession(ctx context.Context, userID uint64, sessionID string, updates map[string]any) (*Session, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var s Session
		if err := tx.Where("id = ? AND user_id = ?", sessionID, userID).First(&s).Error; err != nil {
			return notFound("session", err)
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&s).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetOwnedSession(ctx, userID, sessionID)
}

func (r *Repo) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ?", sessionID).
		UpdateColumn("updated_at", at).Error
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		id, err := common.NewULID()
		if err != nil {
			return err
		}
		m.ID = id
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns a session's messages oldest first.
func (r *Repo) ListMessages(ctx context.Context, sessionID string) ([]Message, error) {
	msgs := []Message{}
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// Job CRUD
func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, notFound("job", err)
	}
	return &j, nil
}

// UpdateJobStatusRunning claims a queued job. It reports false when the
// job was not queued (already claimed, finished, or unknown).
func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, assistantMsgID string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"result_message_id": assistantMsgID,
			"error":             nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobFailed,
			"error":             errMsg,
			"result_message_id": nil,
		}).Error
}

func (r *Repo) GetJobByUserAndIdempotencyKey(ctx context.Context, userID uint64, key string) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&job).Error
	if err != nil {
		return nil, notFound("job", err)
	}
	return &job, nil
}

// CreateJobOrGetExisting tries to create a job, but if (user_id, idempotency_key) already exists,
// it returns the existing job instead.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.CreateJob(ctx, job); err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := r.CreateJob(ctx, job)
	if err == nil {
		return job, true, nil
	}

	existing, getErr := r.GetJobByUserAndIdempotencyKey(ctx, job.UserID, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, common.ErrNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

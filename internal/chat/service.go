package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/suPer8Hu/gemini-chat/internal/ai"
	"github.com/suPer8Hu/gemini-chat/internal/common"
)

const maxIdempotencyKeyLen = 128

type Service struct {
	repo         *Repo
	defaultModel string
}

// NewService uses defaultModel (normalized) for sessions created without
// an explicit model.
func NewService(repo *Repo, defaultModel string) *Service {
	return &Service{repo: repo, defaultModel: ai.Normalize(defaultModel)}
}

func (s *Service) DefaultModel() string { return s.defaultModel }

func (s *Service) CreateSession(ctx context.Context, userID uint64, title *string, model string) (*Session, error) {
	t := defaultTitle
	if title != nil {
		t = strings.TrimSpace(*title)
		if t == "" {
			return nil, common.Validation("title must not be empty")
		}
	}

	m := s.defaultModel
	if strings.TrimSpace(model) != "" {
		m = ai.Normalize(model)
	}

	session := &Session{
		UserID: userID,
		Title:  t,
		Model:  m,
		Status: StatusActive,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) ListSessions(ctx context.Context, userID uint64) ([]Session, error) {
	return s.repo.ListSessions(ctx, userID)
}

// GetSession returns the session with its full history, oldest first.
func (s *Service) GetSession(ctx context.Context, userID uint64, sessionID string) (*Session, []Message, error) {
	sess, err := s.repo.GetOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, sess.ID)
	if err != nil {
		return nil, nil, err
	}
	return sess, msgs, nil
}

type SessionPatch struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

func (s *Service) PatchSession(ctx context.Context, userID uint64, sessionID string, p SessionPatch) (*Session, error) {
	updates := map[string]any{}
	if p.Title != nil {
		if t := strings.TrimSpace(*p.Title); t != "" {
			updates["title"] = t
		}
	}
	if p.Status != nil && *p.Status != "" {
		switch st := SessionStatus(*p.Status); st {
		case StatusActive, StatusEnded:
			updates["status"] = st
		default:
			return nil, common.Validation("status must be %q or %q", StatusActive, StatusEnded)
		}
	}
	return s.repo.UpdateOwnedSession(ctx, userID, sessionID, updates)
}

func (s *Service) ListMessages(ctx context.Context, userID uint64, sessionID string) ([]Message, error) {
	if _, err := s.repo.GetOwnedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, sessionID)
}

// SubmitJob validates a send request and records it as a queued job.
// With an idempotency key, a repeated submission returns the original job
// and created=false.
func (s *Service) SubmitJob(ctx context.Context, userID uint64, req SendRequest, key string) (job *Job, created bool, err error) {
	if err := req.validate(); err != nil {
		return nil, false, err
	}
	key = strings.TrimSpace(key)
	if len(key) > maxIdempotencyKeyLen {
		return nil, false, common.Validation("idempotency key too long")
	}
	if _, err := s.repo.GetOwnedSession(ctx, userID, req.SessionID); err != nil {
		return nil, false, err
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, false, err
	}
	j := &Job{
		ID:        id,
		UserID:    userID,
		SessionID: req.SessionID,
		Content:   req.Content,
		System:    req.System,
		Status:    JobQueued,
	}
	if key != "" {
		j.IdempotencyKey = &key
	}
	return s.repo.CreateJobOrGetExisting(ctx, j)
}

// GetJob returns a job owned by userID; other users' jobs are not found.
func (s *Service) GetJob(ctx context.Context, userID uint64, jobID string) (*Job, error) {
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.UserID != userID {
		// hide existence
		return nil, fmt.Errorf("job %w", common.ErrNotFound)
	}
	return j, nil
}

// AbandonJob fails a job that could not be handed to the queue.
func (s *Service) AbandonJob(ctx context.Context, jobID, reason string) error {
	return s.repo.MarkJobFailed(ctx, jobID, reason)
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrNotFound) }

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/gemini-chat/internal/ai"
	"github.com/suPer8Hu/gemini-chat/internal/common"
	"go.uber.org/zap"
)

// ApologyText is stored as the assistant turn when no model answered.
const ApologyText = "Sorry, something went wrong."

const failureRecordTimeout = 5 * time.Second

// ModelResolver discovers a model id the provider key can actually use.
type ModelResolver interface {
	Resolve(ctx context.Context) (string, error)
}

type SendRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
	System    string `json:"system,omitempty"`
}

// validate enforces the single send precondition: a session id and
// non-blank content. System is an optional extra instruction, never a
// substitute for content.
func (r SendRequest) validate() error {
	if strings.TrimSpace(r.SessionID) == "" {
		return common.Validation("sessionId is required")
	}
	if strings.TrimSpace(r.Content) == "" {
		return common.Validation("content is required")
	}
	return nil
}

type SendResult struct {
	User      Message `json:"user"`
	Assistant Message `json:"assistant"`
}

type DispatcherConfig struct {
	// Fallbacks are tried, in order, after the session's own model.
	Fallbacks      []string
	AttemptTimeout time.Duration
	TotalTimeout   time.Duration
}

// Dispatcher runs a send: persist the user turn, ask the provider with the
// session history, persist the answer (or a failure record).
type Dispatcher struct {
	repo     *Repo
	provider ai.Provider
	resolver ModelResolver
	locker   Locker
	cfg      DispatcherConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher accepts a nil provider; sends then fail as misconfigured.
func NewDispatcher(repo *Repo, provider ai.Provider, resolver ModelResolver, locker Locker, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 60 * time.Second
	}
	if cfg.TotalTimeout <= 0 {
		cfg.TotalTimeout = 3 * time.Minute
	}
	return &Dispatcher{
		repo:     repo,
		provider: provider,
		resolver: resolver,
		locker:   locker,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (d *Dispatcher) Send(ctx context.Context, userID uint64, req SendRequest) (*SendResult, error) {
	start := d.now()

	if err := req.validate(); err != nil {
		return nil, err
	}
	sess, err := d.repo.GetOwnedSession(ctx, userID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if d.provider == nil {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not configured on the server", common.ErrMisconfigured)
	}

	// Concurrent sends on one session would otherwise interleave their
	// history reads and turn writes.
	unlock, err := d.locker.Lock(ctx, sessionLockKey(sess.ID))
	if err != nil {
		return nil, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	userMsg := &Message{
		SessionID: sess.ID,
		UserID:    &userID,
		Role:      ai.RoleUser,
		Content:   req.Content,
	}
	if err := d.repo.InsertMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	prior, err := d.repo.ListMessages(ctx, sess.ID)
	if err != nil {
		return nil, err
	}

	res, err := d.generate(ctx, sess, req, historyTurns(prior, userMsg.ID))
	latency := d.now().Sub(start).Milliseconds()
	if err != nil {
		d.logger.Error("send message failed",
			zap.String("session_id", sess.ID),
			zap.Uint64("user_id", userID),
			zap.Int64("latency_ms", latency),
			zap.Error(err),
		)
		d.recordFailure(ctx, sess.ID, err, latency)
		return nil, fmt.Errorf("%w: %w", common.ErrUpstream, err)
	}

	assistantMsg := &Message{
		SessionID: sess.ID,
		Role:      ai.RoleAssistant,
		Content:   res.Text,
		LatencyMs: &latency,
	}
	if res.Tokens > 0 {
		tokens := res.Tokens
		assistantMsg.Tokens = &tokens
	}
	if err := d.repo.InsertMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}
	if err := d.repo.TouchSession(ctx, sess.ID, d.now()); err != nil {
		d.logger.Warn("touch session", zap.String("session_id", sess.ID), zap.Error(err))
	}

	return &SendResult{User: *userMsg, Assistant: *assistantMsg}, nil
}

// historyTurns converts stored messages to provider turns. The new user
// turn, system turns and recorded failures are left out. A failure row
// holds the apology text, which the model would otherwise read as its own
// earlier reply.
func historyTurns(msgs []Message, skipID string) []ai.Turn {
	turns := make([]ai.Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == skipID || m.Role == ai.RoleSystem || m.Error != nil {
			continue
		}
		turns = append(turns, ai.Turn{Role: m.Role, Text: m.Content})
	}
	return turns
}

// generate walks the candidate models. A "model unavailable" failure moves
// on to the next candidate; any other failure ends the whole attempt.
func (d *Dispatcher) generate(ctx context.Context, sess *Session, req SendRequest, history []ai.Turn) (ai.GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.TotalTimeout)
	defer cancel()

	candidates := ai.Dedupe(append([]string{ai.Normalize(sess.Model)}, d.cfg.Fallbacks...)...)

	var lastErr error
	for _, model := range candidates {
		res, err := d.attempt(ctx, model, req, history)
		if err == nil {
			if res.Text != "" {
				return res, nil
			}
			continue
		}
		lastErr = err
		if !ai.IsModelUnavailable(err) {
			return ai.GenerateResult{}, err
		}
		d.logger.Warn("model unavailable, trying next candidate",
			zap.String("session_id", sess.ID),
			zap.String("model", model),
			zap.Error(err),
		)
	}

	if d.resolver != nil {
		discovered, err := d.resolver.Resolve(ctx)
		if err != nil {
			return ai.GenerateResult{}, err
		}
		d.logger.Info("retrying with discovered model",
			zap.String("session_id", sess.ID),
			zap.String("model", discovered),
		)
		res, err := d.attempt(ctx, discovered, req, history)
		if err == nil && res.Text != "" {
			return res, nil
		}
		if err != nil {
			lastErr = err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no response from model")
	}
	return ai.GenerateResult{}, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, model string, req SendRequest, history []ai.Turn) (ai.GenerateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
	defer cancel()
	return d.provider.Generate(ctx, ai.GenerateRequest{
		Model:   model,
		System:  req.System,
		History: history,
		Prompt:  req.Content,
	})
}

// recordFailure appends the apology turn. It survives caller cancellation
// and never returns an error; the original failure is what the caller sees.
func (d *Dispatcher) recordFailure(ctx context.Context, sessionID string, cause error, latency int64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureRecordTimeout)
	defer cancel()

	detail := cause.Error()
	msg := &Message{
		SessionID: sessionID,
		Role:      ai.RoleAssistant,
		Content:   ApologyText,
		Error:     &detail,
		LatencyMs: &latency,
	}
	if err := d.repo.InsertMessage(ctx, msg); err != nil {
		d.logger.Warn("record failed turn", zap.String("session_id", sessionID), zap.Error(err))
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/suPer8Hu/gemini-chat/internal/common"
	"github.com/suPer8Hu/gemini-chat/internal/models"
	"go.uber.org/zap"
)

const minPasswordLen = 6

// Notifier is told about new accounts. Implementations must not block.
type Notifier interface {
	Welcome(user models.User)
}

type Result struct {
	User  models.PublicUser `json:"user"`
	Token string            `json:"token"`
}

type Service struct {
	repo     *Repo
	signer   *Signer
	validate *validator.Validate
	notifier Notifier
	logger   *zap.Logger
}

func NewService(repo *Repo, signer *Signer, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		signer:   signer,
		validate: validator.New(),
		notifier: notifier,
		logger:   logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, name, email, password string) (*Result, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, common.Validation("name is required")
	}
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, common.Validation("a valid email is required")
	}
	if len(password) < minPasswordLen {
		return nil, common.Validation("password must be at least %d characters", minPasswordLen)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.repo.Create(ctx, &user); err != nil {
		return nil, err
	}

	token, err := s.signer.Sign(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	s.logger.Info("user registered", zap.Uint64("user_id", user.ID))

	if s.notifier != nil {
		s.notifier.Welcome(user)
	}
	return &Result{User: user.Public(), Token: token}, nil
}

// Login never reveals whether the email exists: both failure paths return
// the same error after one bcrypt comparison.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.Validation("email and password are required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		burnCompare(password)
		return nil, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized)
	}

	token, err := s.signer.Sign(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Result{User: user.Public(), Token: token}, nil
}

func (s *Service) Me(ctx context.Context, id Identity) (*models.PublicUser, error) {
	u, err := s.repo.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}

package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/suPer8Hu/gemini-chat/internal/auth"
	"github.com/suPer8Hu/gemini-chat/internal/common"
)

// Input is the body of a create or update. Variables and IsGlobal are
// optional; nil Variables are inferred from Content.
type Input struct {
	Name      string   `json:"name"`
	Content   string   `json:"content"`
	Variables []string `json:"variables"`
	IsGlobal  *bool    `json:"isGlobal"`
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return common.Validation("name is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return common.Validation("content is required")
	}
	return nil
}

func (in Input) variables() []string {
	if in.Variables == nil {
		return ExtractVariables(in.Content)
	}
	return cleanVariables(in.Variables)
}

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, ident auth.Identity) ([]Template, error) {
	return s.repo.ListVisible(ctx, ident.UserID)
}

func (s *Service) Create(ctx context.Context, ident auth.Identity, in Input) (*Template, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	global := in.IsGlobal != nil && *in.IsGlobal
	if global && !ident.IsAdmin {
		return nil, fmt.Errorf("%w: only admins can create global prompts", common.ErrForbidden)
	}

	owner := ident.UserID
	t := &Template{
		UserID:    &owner,
		Name:      strings.TrimSpace(in.Name),
		Content:   in.Content,
		Variables: in.variables(),
		IsGlobal:  global,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update rewrites a template the caller owns. Non-admins can neither set
// the global flag nor keep it on a template that already has it.
func (s *Service) Update(ctx context.Context, ident auth.Identity, id string, in Input) (*Template, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.IsGlobal != nil && *in.IsGlobal && !ident.IsAdmin {
		return nil, fmt.Errorf("%w: only admins can modify global prompts", common.ErrForbidden)
	}
	t, err := s.repo.GetOwned(ctx, ident.UserID, id)
	if err != nil {
		return nil, err
	}

	global := t.IsGlobal
	if in.IsGlobal != nil {
		global = *in.IsGlobal
	}
	if global && !ident.IsAdmin {
		return nil, fmt.Errorf("%w: only admins can modify global prompts", common.ErrForbidden)
	}

	t.Name = strings.TrimSpace(in.Name)
	t.Content = in.Content
	t.Variables = in.variables()
	t.IsGlobal = global
	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, ident auth.Identity, id string) error {
	return s.repo.DeleteOwned(ctx, ident.UserID, id)
}

type Rendered struct {
	Content string   `json:"content"`
	Missing []string `json:"missing"`
}

// Render fills a visible template with values.
func (s *Service) Render(ctx context.Context, ident auth.Identity, id string, values map[string]string) (*Rendered, error) {
	t, err := s.repo.GetVisible(ctx, ident.UserID, id)
	if err != nil {
		return nil, err
	}
	content, missing := Render(t.Content, values)
	return &Rendered{Content: content, Missing: missing}, nil
}

package ai

import (
	"context"
	"errors"
	"strings"
)

// Role is the speaker of a conversation turn as stored by this service.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

type Turn struct {
	Role Role
	Text string
}

type GenerateRequest struct {
	Model   string
	System  string
	History []Turn
	Prompt  string
}

type GenerateResult struct {
	Text   string
	Tokens int
}

type ModelInfo struct {
	ID               string   `json:"name"`
	DisplayName      string   `json:"displayName,omitempty"`
	Description      string   `json:"description,omitempty"`
	InputTokenLimit  int      `json:"inputTokenLimit,omitempty"`
	OutputTokenLimit int      `json:"outputTokenLimit,omitempty"`
	Methods          []string `json:"supportedMethods"`
}

// Catalog lists the models a provider key can use.
type Catalog interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Provider is the generative-language backend.
type Provider interface {
	Catalog
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// ErrModelNotFound marks a model id the provider does not know or no longer
// serves.
var ErrModelNotFound = errors.New("model not found")

// IsModelUnavailable reports whether err means "try another model" rather
// than a failure unrelated to the model choice.
func IsModelUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrModelNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "not supported")
}

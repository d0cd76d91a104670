package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/suPer8Hu/gemini-chat/internal/common"
	"google.golang.org/genai"
)

// GeminiProvider talks to the Gemini API through the genai SDK.
type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey, baseURL string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", common.ErrMisconfigured)
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var out []ModelInfo
	for m, err := range p.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("%w: list models: %w", common.ErrUpstream, err)
		}
		out = append(out, ModelInfo{
			ID:               strings.TrimPrefix(m.Name, "models/"),
			DisplayName:      m.DisplayName,
			Description:      m.Description,
			InputTokenLimit:  int(m.InputTokenLimit),
			OutputTokenLimit: int(m.OutputTokenLimit),
			Methods:          m.SupportedActions,
		})
	}
	return out, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	var cfg *genai.GenerateContentConfig
	if system := strings.TrimSpace(req.System); system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, buildContents(req.History, req.Prompt), cfg)
	if err != nil {
		return GenerateResult{}, classifyGeminiError(req.Model, err)
	}

	res := GenerateResult{Text: modelText(resp)}
	if resp.UsageMetadata != nil {
		res.Tokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return res, nil
}

// buildContents turns stored history plus the new prompt into Gemini
// contents. Turns without a Gemini role are skipped.
func buildContents(history []Turn, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		role, ok := geminiRoles.toProvider(t.Role)
		if !ok {
			continue
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}

// modelText returns the text of the first candidate spoken by the model.
func modelText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		if role, ok := geminiRoles.fromProvider(genai.Role(cand.Content.Role)); ok && role != RoleAssistant {
			continue
		}
		var b strings.Builder
		for _, part := range cand.Content.Parts {
			if part != nil && !part.Thought {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}

func classifyGeminiError(model string, err error) error {
	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}
	if code == http.StatusNotFound {
		return fmt.Errorf("gemini %s: %w: %w", model, ErrModelNotFound, err)
	}
	return fmt.Errorf("gemini %s: %w", model, err)
}

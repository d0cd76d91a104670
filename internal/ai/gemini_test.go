package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestRoleTable(t *testing.T) {
	r, ok := geminiRoles.toProvider(RoleAssistant)
	require.True(t, ok)
	assert.Equal(t, genai.Role(genai.RoleModel), r)

	r, ok = geminiRoles.toProvider(RoleUser)
	require.True(t, ok)
	assert.Equal(t, genai.Role(genai.RoleUser), r)

	_, ok = geminiRoles.toProvider(RoleSystem)
	assert.False(t, ok)

	back, ok := geminiRoles.fromProvider(genai.RoleModel)
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, back)
}

func TestBuildContents(t *testing.T) {
	history := []Turn{
		{Role: RoleUser, Text: "hi"},
		{Role: RoleSystem, Text: "be terse"},
		{Role: RoleAssistant, Text: "hello"},
	}
	contents := buildContents(history, "how are you")

	require.Len(t, contents, 3)
	want := []struct {
		role string
		text string
	}{
		{"user", "hi"},
		{"model", "hello"},
		{"user", "how are you"},
	}
	for i, w := range want {
		assert.Equal(t, w.role, contents[i].Role)
		require.Len(t, contents[i].Parts, 1)
		assert.Equal(t, w.text, contents[i].Parts[0].Text)
	}
}

func TestModelText(t *testing.T) {
	assert.Equal(t, "", modelText(nil))
	assert.Equal(t, "", modelText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Hello "},
				{Text: "there"},
			}}},
		},
	}
	assert.Equal(t, "Hello there", modelText(resp))
}

func TestClassifyGeminiError(t *testing.T) {
	notFound := classifyGeminiError("gemini-x", genai.APIError{Code: http.StatusNotFound, Message: "models/gemini-x is gone", Status: "NOT_FOUND"})
	assert.ErrorIs(t, notFound, ErrModelNotFound)
	assert.True(t, IsModelUnavailable(notFound))

	denied := classifyGeminiError("gemini-x", genai.APIError{Code: http.StatusForbidden, Message: "API key invalid", Status: "PERMISSION_DENIED"})
	assert.NotErrorIs(t, denied, ErrModelNotFound)
	assert.False(t, IsModelUnavailable(denied))
}

func TestIsModelUnavailable(t *testing.T) {
	assert.False(t, IsModelUnavailable(nil))
	assert.True(t, IsModelUnavailable(fmt.Errorf("wrap: %w", ErrModelNotFound)))
	assert.True(t, IsModelUnavailable(errors.New("[404 Not Found] models/gemini-1.5-flash is not found")))
	assert.True(t, IsModelUnavailable(errors.New("model is not supported for generateContent")))
	assert.False(t, IsModelUnavailable(errors.New("quota exceeded")))
}

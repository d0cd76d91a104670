package chat

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/gemini-chat/internal/ai"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "chat.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&Session{}, &Message{}, &Job{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type generateCall struct {
	Model   string
	System  string
	History []ai.Turn
	Prompt  string
}

// fakeProvider answers per model. Models without a reply or error are
// reported as not found.
type fakeProvider struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	block   bool
	calls   []generateCall
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{replies: map[string]string{}, errs: map[string]error{}}
}

func (p *fakeProvider) ListModels(ctx context.Context) ([]ai.ModelInfo, error) {
	return nil, nil
}

func (p *fakeProvider) Generate(ctx context.Context, req ai.GenerateRequest) (ai.GenerateResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, generateCall{
		Model:   req.Model,
		System:  req.System,
		History: append([]ai.Turn(nil), req.History...),
		Prompt:  req.Prompt,
	})
	block := p.block
	reply, hasReply := p.replies[req.Model]
	err, hasErr := p.errs[req.Model]
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return ai.GenerateResult{}, ctx.Err()
	}
	if hasErr {
		return ai.GenerateResult{}, err
	}
	if !hasReply {
		return ai.GenerateResult{}, ai.ErrModelNotFound
	}
	if reply == "" {
		return ai.GenerateResult{}, nil
	}
	return ai.GenerateResult{Text: reply + ": " + req.Prompt, Tokens: 7}, nil
}

func (p *fakeProvider) Calls() []generateCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]generateCall(nil), p.calls...)
}

func (p *fakeProvider) Models() []string {
	var out []string
	for _, c := range p.Calls() {
		out = append(out, c.Model)
	}
	return out
}

type fakeResolver struct {
	model string
	err   error
	calls atomic.Int32
}

func (r *fakeResolver) Resolve(ctx context.Context) (string, error) {
	r.calls.Add(1)
	return r.model, r.err
}

func mustSession(t *testing.T, repo *Repo, userID uint64, model string) *Session {
	t.Helper()
	s := &Session{UserID: userID, Title: defaultTitle, Model: model, Status: StatusActive}
	if err := repo.CreateSession(context.Background(), s); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return s
}

func testDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Fallbacks:      []string{"fallback-a", "fallback-b"},
		AttemptTimeout: time.Second,
		TotalTimeout:   5 * time.Second,
	}
}

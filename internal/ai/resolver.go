package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/suPer8Hu/gemini-chat/internal/common"
	"golang.org/x/sync/singleflight"
)

var generationMethods = map[string]bool{
	"generateContent":       true,
	"generateContentStream": true,
}

func canGenerate(m ModelInfo) bool {
	for _, method := range m.Methods {
		if generationMethods[method] {
			return true
		}
	}
	return false
}

// PickModel chooses from the catalog: the first preferred id that can
// generate content, else the first usable "flash" model, else the first
// usable model.
func PickModel(models []ModelInfo, preferred []string) (string, bool) {
	usable := make([]ModelInfo, 0, len(models))
	byID := make(map[string]bool, len(models))
	for _, m := range models {
		if canGenerate(m) {
			usable = append(usable, m)
			byID[m.ID] = true
		}
	}
	if len(usable) == 0 {
		return "", false
	}
	for _, id := range preferred {
		if byID[id] {
			return id, true
		}
	}
	for _, m := range usable {
		if strings.Contains(m.ID, "flash") {
			return m.ID, true
		}
	}
	return usable[0].ID, true
}

// Dedupe drops empty and repeated ids, keeping first occurrences in order.
func Dedupe(ids ...string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// catalogFetchTimeout bounds a shared catalog fetch, which outlives any
// single caller's context.
const catalogFetchTimeout = 30 * time.Second

// Resolver discovers a usable model id once per process and remembers it
// until Invalidate is called.
type Resolver struct {
	catalog   Catalog
	preferred []string

	mu     sync.RWMutex
	cached string
	gen    uint64

	group singleflight.Group
}

// NewResolver ranks override (the operator's configured model) ahead of the
// preferred list.
func NewResolver(catalog Catalog, override string, preferred []string) *Resolver {
	return &Resolver{
		catalog:   catalog,
		preferred: Dedupe(append([]string{override}, preferred...)...),
	}
}

func (r *Resolver) Preferred() []string {
	return append([]string(nil), r.preferred...)
}

func (r *Resolver) Cached() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cached, r.cached != ""
}

// Invalidate drops the cached id; the next Resolve queries the catalog again.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cached = ""
	r.gen++
	r.mu.Unlock()
	r.group.Forget("resolve")
}

// Resolve returns the cached id or fetches the catalog. Concurrent callers
// share a single fetch; a caller whose ctx ends stops waiting without
// aborting the fetch for the others.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if id, ok := r.Cached(); ok {
		return id, nil
	}
	if r.catalog == nil {
		return "", fmt.Errorf("%w: no model catalog configured", common.ErrMisconfigured)
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan("resolve", func() (any, error) {
		return r.fetch(fetchCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Resolver) fetch(ctx context.Context) (string, error) {
	r.mu.RLock()
	gen, cached := r.gen, r.cached
	r.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, catalogFetchTimeout)
	defer cancel()
	models, err := r.catalog.ListModels(ctx)
	if err != nil {
		return "", err
	}
	id, ok := PickModel(models, r.preferred)
	if !ok {
		return "", fmt.Errorf("%w: no compatible model available for this key", common.ErrUpstream)
	}

	r.mu.Lock()
	// an Invalidate during the fetch wins
	if r.gen == gen {
		r.cached = id
	}
	r.mu.Unlock()
	return id, nil
}

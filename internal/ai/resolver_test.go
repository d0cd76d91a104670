package ai

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/gemini-chat/internal/common"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCatalog struct {
	models []ModelInfo
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (c *fakeCatalog) ListModels(ctx context.Context) ([]ModelInfo, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.models, c.err
}

func gen(ids ...string) []ModelInfo {
	out := make([]ModelInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, ModelInfo{ID: id, Methods: []string{"generateContent", "countTokens"}})
	}
	return out
}

func TestPickModel(t *testing.T) {
	embedOnly := ModelInfo{ID: "gemini-1.5-flash-latest", Methods: []string{"embedContent"}}

	cases := []struct {
		name      string
		models    []ModelInfo
		preferred []string
		want      string
		ok        bool
	}{
		{"empty catalog", nil, []string{"a"}, "", false},
		{"nothing usable", []ModelInfo{embedOnly}, []string{"gemini-1.5-flash-latest"}, "", false},
		{"first preferred wins", gen("gemini-pro-x", "b", "a"), []string{"a", "b"}, "a", true},
		{"preferred must be usable", append([]ModelInfo{embedOnly}, gen("gemini-2.0-flash")...), []string{"gemini-1.5-flash-latest"}, "gemini-2.0-flash", true},
		{"flash fallback", gen("gemini-2.5-pro", "gemini-2.5-flash"), []string{"nope"}, "gemini-2.5-flash", true},
		{"first usable", gen("gemini-2.5-pro", "gemini-ultra"), nil, "gemini-2.5-pro", true},
		{"stream method counts", []ModelInfo{{ID: "s", Methods: []string{"generateContentStream"}}}, nil, "s", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := PickModel(tc.models, tc.preferred)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewResolver_PreferredOrder(t *testing.T) {
	r := NewResolver(nil, "gemini-custom", []string{"a", "gemini-custom", "b", "", "a"})
	if diff := cmp.Diff([]string{"gemini-custom", "a", "b"}, r.Preferred()); diff != "" {
		t.Errorf("preferred mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_MemoizesAfterFirstSuccess(t *testing.T) {
	cat := &fakeCatalog{models: gen("gemini-2.5-pro", "gemini-1.5-flash-latest")}
	r := NewResolver(cat, "", []string{"gemini-1.5-flash-latest"})

	first, err := r.Resolve(context.Background())
	require.NoError(t, err)
	second, err := r.Resolve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "gemini-1.5-flash-latest", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), cat.calls.Load())
}

func TestResolver_ConcurrentCallersShareOneFetch(t *testing.T) {
	cat := &fakeCatalog{models: gen("gemini-2.5-flash"), delay: 50 * time.Millisecond}
	r := NewResolver(cat, "", nil)

	var wg sync.WaitGroup
	results := make([]string, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.Resolve(context.Background())
			assert.NoError(t, err)
			results[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range results {
		assert.Equal(t, "gemini-2.5-flash", id)
	}
	assert.Equal(t, int32(1), cat.calls.Load())
}

func TestResolver_CancelledCallerDoesNotFailOthers(t *testing.T) {
	cat := &fakeCatalog{models: gen("gemini-2.5-flash"), delay: 100 * time.Millisecond}
	r := NewResolver(cat, "", nil)

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(leaderCtx)
		leaderErr <- err
	}()
	// let the first caller start the fetch before the second joins
	require.Eventually(t, func() bool { return cat.calls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		id  string
		err error
	}
	follower := make(chan result, 1)
	go func() {
		id, err := r.Resolve(context.Background())
		follower <- result{id, err}
	}()

	cancelLeader()
	assert.ErrorIs(t, <-leaderErr, context.Canceled)

	got := <-follower
	require.NoError(t, got.err)
	assert.Equal(t, "gemini-2.5-flash", got.id)
	assert.Equal(t, int32(1), cat.calls.Load())

	id, ok := r.Cached()
	assert.True(t, ok)
	assert.Equal(t, "gemini-2.5-flash", id)
}

func TestResolver_InvalidateForcesRefetch(t *testing.T) {
	cat := &fakeCatalog{models: gen("gemini-1.5-flash-latest")}
	r := NewResolver(cat, "", []string{"gemini-1.5-flash-latest", "gemini-2.5-flash"})

	id, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, "gemini-1.5-flash-latest", id)

	// provider retires the model
	cat.models = gen("gemini-2.5-flash")
	r.Invalidate()
	_, cached := r.Cached()
	assert.False(t, cached)

	id, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", id)
	assert.Equal(t, int32(2), cat.calls.Load())
}

func TestResolver_Errors(t *testing.T) {
	upstream := errors.New("status 403")
	r := NewResolver(&fakeCatalog{err: upstream}, "", nil)
	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, upstream)
	_, cached := r.Cached()
	assert.False(t, cached)

	r = NewResolver(&fakeCatalog{models: []ModelInfo{{ID: "embed", Methods: []string{"embedContent"}}}}, "", nil)
	_, err = r.Resolve(context.Background())
	assert.ErrorIs(t, err, common.ErrUpstream)

	r = NewResolver(nil, "", nil)
	_, err = r.Resolve(context.Background())
	assert.ErrorIs(t, err, common.ErrMisconfigured)
}

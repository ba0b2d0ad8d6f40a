package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-tonescope/db"
	"go-tonescope/types"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func sampleResult(title string) types.AnalysisResult {
	return types.AnalysisResult{
		ToneResult: types.ToneResult{
			Framing:       types.FramingContemptuous,
			FramingScore:  -0.275,
			EmotionScores: types.EmotionScores{Anger: 0.8, Neutral: 0.2},
			Explanation:   "Mostly anger.",
		},
		Recommendations: []types.Recommendation{
			{Title: title, URL: "https://a.example", Summary: "calm take"},
		},
	}
}

func newTestCache(t *testing.T, kv db.Store, clock *fakeClock, opts ...Option) *Cache {
	t.Helper()
	c, err := New(context.Background(), kv, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestSetThenGet(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(t, db.NewMemoryStore(), clock)

	want := sampleResult("A")
	require.NoError(t, c.Set(ctx, "vid123", want, 0))

	got, ok := c.Get(ctx, "vid123")
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = c.Get(ctx, "other")
	assert.False(t, ok)
}

func TestExpiredEntryIsEvicted(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)}
	kv := db.NewMemoryStore()
	c := newTestCache(t, kv, clock)

	require.NoError(t, c.Set(ctx, "vid123", sampleResult("A"), 0))

	clock.Advance(DefaultDuration - time.Second)
	_, ok := c.Get(ctx, "vid123")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, "vid123")
	assert.False(t, ok)
	_, present := c.entries["vid123"]
	assert.False(t, present)

	// The eviction reached durable storage.
	reloaded := newTestCache(t, kv, clock)
	assert.Zero(t, reloaded.Len())
}

func TestCustomDuration(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	c := newTestCache(t, db.NewMemoryStore(), clock)

	require.NoError(t, c.Set(ctx, "short", sampleResult("A"), day))
	require.NoError(t, c.Set(ctx, "long", sampleResult("B"), 7*day))

	clock.Advance(2 * day)
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "long")
	assert.True(t, ok)
}

func TestWithDefaultDuration(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	c := newTestCache(t, db.NewMemoryStore(), clock, WithDefaultDuration(time.Hour))

	require.NoError(t, c.Set(ctx, "k", sampleResult("A"), 0))
	assert.Equal(t, time.Hour, c.entries["k"].Duration)
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	c := newTestCache(t, db.NewMemoryStore(), clock)

	require.NoError(t, c.Set(ctx, "k", sampleResult("old"), 0))
	require.NoError(t, c.Set(ctx, "k", sampleResult("new"), 0))

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "new", got.Recommendations[0].Title)
	assert.Equal(t, 1, c.Len())
}

func TestInvalidateAbsentKeyIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := db.NewMemoryStore()
	c := newTestCache(t, kv, &fakeClock{t: time.Now()})

	assert.NoError(t, c.Invalidate(ctx, "nope"))
	assert.Zero(t, kv.SetCount())

	require.NoError(t, c.Set(ctx, "k", sampleResult("A"), 0))
	require.NoError(t, c.Invalidate(ctx, "k"))
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx, "k"))
}

func TestClearAndReload(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	kv := db.NewMemoryStore()
	c := newTestCache(t, kv, clock)

	require.NoError(t, c.Set(ctx, "a", sampleResult("A"), 0))
	require.NoError(t, c.Set(ctx, "b", sampleResult("B"), 0))

	reloaded := newTestCache(t, kv, clock)
	got, ok := reloaded.Get(ctx, "b")
	require.True(t, ok)
	assert.Equal(t, sampleResult("B"), got)

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, c.Len())
	assert.Zero(t, newTestCache(t, kv, clock).Len())
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Now()}
	kv := db.NewMemoryStore()
	c := newTestCache(t, kv, clock)

	require.NoError(t, c.Set(ctx, "day", sampleResult("A"), day))
	require.NoError(t, c.Set(ctx, "week", sampleResult("B"), 7*day))
	require.NoError(t, c.Set(ctx, "month", sampleResult("C"), 0))

	n, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	clock.Advance(8 * day)
	writes := kv.SetCount()
	n, err = c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, writes+1, kv.SetCount())
}

func TestCorruptSnapshotIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := db.NewMemoryStore()
	require.NoError(t, kv.Set(ctx, map[string][]byte{StorageKey: []byte("not json")}))

	c, err := New(ctx, kv)
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

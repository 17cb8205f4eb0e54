package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"blog-edge/middleware/gate/domain"
	"blog-edge/middleware/gate/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postQuery struct {
	Tag  string `json:"tag"`
	Page int    `json:"page"`
}

func TestCache_VersionStartsAtOneAndBumpIsMonotonic(t *testing.T) {
	store, mr := newTestStore(t)
	c := NewCache(store, nop)
	ctx := context.Background()

	assert.Equal(t, int64(1), mustVersion(t, c, "posts"))
	v, _ := mr.Get("cache:ver:posts")
	assert.Equal(t, "1", v)

	assert.Equal(t, int64(2), c.Bump(ctx, "posts"))
	assert.Equal(t, int64(3), c.Bump(ctx, "posts"))
	assert.Equal(t, int64(3), mustVersion(t, c, "posts"))

	// namespaces são independentes
	assert.Equal(t, int64(1), mustVersion(t, c, "comments"))
}

func mustVersion(t *testing.T, c *Cache, ns string) int64 {
	t.Helper()
	v, err := c.Version(context.Background(), ns)
	require.NoError(t, err)
	return v
}

func TestCache_BumpWithoutPriorReadYieldsTwo(t *testing.T) {
	store, _ := newTestStore(t)
	c := NewCache(store, nop)

	assert.Equal(t, int64(2), c.Bump(context.Background(), "tags"))
}

func TestCache_KeyChangesAfterBump(t *testing.T) {
	store, _ := newTestStore(t)
	c := NewCache(store, nop)
	ctx := context.Background()
	in := postQuery{Tag: "go", Page: 1}

	k1, err := c.Key(ctx, "posts", in)
	require.NoError(t, err)
	k1again, err := c.Key(ctx, "posts", in)
	require.NoError(t, err)
	assert.Equal(t, k1, k1again)
	assert.True(t, strings.HasPrefix(k1, "cache:posts:1:"))

	c.Bump(ctx, "posts")
	k2, err := c.Key(ctx, "posts", in)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
	assert.True(t, strings.HasPrefix(k2, "cache:posts:2:"))
}

func TestFingerprint_CanonicalAndShort(t *testing.T) {
	a, err := Fingerprint(map[string]any{"page": 1, "tag": "go"})
	require.NoError(t, err)
	b, err := Fingerprint(postQuery{Tag: "go", Page: 1})
	require.NoError(t, err)

	// map é serializado com chaves ordenadas; a struct segue a ordem dos campos
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)

	c, _ := Fingerprint(map[string]any{"tag": "go", "page": 1})
	assert.Equal(t, a, c)

	_, err = Fingerprint(func() {})
	require.Error(t, err)
}

func TestWrap_ComputesOnceUntilBump(t *testing.T) {
	store, mr := newTestStore(t)
	c := NewCache(store, nop)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) ([]string, error) {
		calls++
		return []string{"hello", "world"}, nil
	}

	v, err := Wrap(ctx, c, "posts", postQuery{Page: 1}, 30*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, v)

	v, err = Wrap(ctx, c, "posts", postQuery{Page: 1}, 30*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, v)
	assert.Equal(t, 1, calls)

	key, _ := c.Key(ctx, "posts", postQuery{Page: 1})
	assert.Equal(t, 30*time.Second, mr.TTL(key))

	c.Bump(ctx, "posts")
	_, err = Wrap(ctx, c, "posts", postQuery{Page: 1}, 30*time.Second, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWrap_DefaultTTL(t *testing.T) {
	store, mr := newTestStore(t)
	c := NewCache(store, nop)
	ctx := context.Background()

	_, err := Wrap(ctx, c, "posts", "all", 0, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)

	key, _ := c.Key(ctx, "posts", "all")
	assert.Equal(t, DefaultCacheTTL, mr.TTL(key))
}

func TestWrap_NilResultIsCached(t *testing.T) {
	store, _ := newTestStore(t)
	c := NewCache(store, nop)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) (*postQuery, error) {
		calls++
		return nil, nil
	}

	for range 3 {
		v, err := Wrap(ctx, c, "posts", "missing-slug", time.Minute, compute)
		require.NoError(t, err)
		assert.Nil(t, v)
	}
	assert.Equal(t, 1, calls)
}

func TestWrap_ComputeErrorIsNotCached(t *testing.T) {
	store, _ := newTestStore(t)
	c := NewCache(store, nop)
	ctx := context.Background()
	boom := errors.New("db down")

	_, err := Wrap(ctx, c, "posts", 1, time.Minute, func(context.Context) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	v, err := Wrap(ctx, c, "posts", 1, time.Minute, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWrap_CorruptEntryRecomputes(t *testing.T) {
	store, mr := newTestStore(t)
	c := NewCache(store, nop)
	ctx := context.Background()

	key, _ := c.Key(ctx, "posts", 1)
	require.NoError(t, mr.Set(key, "{not json"))

	v, err := Wrap(ctx, c, "posts", 1, time.Minute, func(context.Context) (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	raw, _ := mr.Get(key)
	assert.JSONEq(t, `{"v":5}`, raw)
}

func TestCache_DisabledStoreComputesEveryTime(t *testing.T) {
	c := NewCache(infra.DisabledStore{}, nop)
	ctx := context.Background()

	_, err := c.Version(ctx, "posts")
	require.ErrorIs(t, err, ErrEpochUnknown)
	_, err = c.Key(ctx, "posts", 1)
	require.ErrorIs(t, err, ErrEpochUnknown)
	assert.Equal(t, int64(0), c.Bump(ctx, "posts"))

	calls := 0
	for range 3 {
		v, err := Wrap(ctx, c, "posts", 1, time.Minute, func(context.Context) (string, error) {
			calls++
			return "fresh", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "fresh", v)
	}
	assert.Equal(t, 3, calls)
}

func TestCache_StoreGoneFailsOpen(t *testing.T) {
	store, mr := newTestStore(t)
	c := NewCache(store, nop)
	mr.Close()

	v, err := Wrap(context.Background(), c, "posts", 1, time.Minute, func(context.Context) (int, error) { return 9, nil })
	require.NoError(t, err)
	assert.Equal(t, 9, v)
	_, err = c.Version(context.Background(), "posts")
	require.ErrorIs(t, err, ErrEpochUnknown)
}

// flakyVersionStore falha as leituras da epoch enquanto failVersion estiver ligado.
type flakyVersionStore struct {
	domain.Store
	failVersion bool
	entryGets   int
}

func (s *flakyVersionStore) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.HasPrefix(key, "cache:ver:") {
		if s.failVersion {
			return nil, context.DeadlineExceeded
		}
	} else {
		s.entryGets++
	}
	return s.Store.Get(ctx, key)
}

func TestWrap_UnknownEpochAfterBumpNeverServesStale(t *testing.T) {
	store, mr := newTestStore(t)
	flaky := &flakyVersionStore{Store: store}
	c := NewCache(flaky, nop)
	ctx := context.Background()
	in := postQuery{Tag: "go", Page: 1}

	v, err := Wrap(ctx, c, "posts", in, time.Minute, func(context.Context) (string, error) { return "old", nil })
	require.NoError(t, err)
	require.Equal(t, "old", v)
	before, err := c.Key(ctx, "posts", in)
	require.NoError(t, err)

	require.Equal(t, int64(2), c.Bump(ctx, "posts"))

	flaky.failVersion = true
	_, err = c.Key(ctx, "posts", in)
	require.ErrorIs(t, err, ErrEpochUnknown)

	gets := flaky.entryGets
	keys := len(mr.Keys())
	v, err = Wrap(ctx, c, "posts", in, time.Minute, func(context.Context) (string, error) { return "new", nil })
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	// sem epoch o store nem é consultado nem escrito
	assert.Equal(t, gets, flaky.entryGets)
	assert.Len(t, mr.Keys(), keys)

	flaky.failVersion = false
	after, err := c.Key(ctx, "posts", in)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

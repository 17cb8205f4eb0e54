package infra

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_EmptyURLIsSilentlyDisabled(t *testing.T) {
	var buf bytes.Buffer
	s := Connect(context.Background(), "  ", WithConnectLogger(zerolog.New(&buf)))

	assert.False(t, s.Enabled())
	assert.Empty(t, buf.String())
}

func TestConnect_InvalidURLWarnsAndDisables(t *testing.T) {
	var buf bytes.Buffer
	s := Connect(context.Background(), "http://not-redis", WithConnectLogger(zerolog.New(&buf)))

	assert.False(t, s.Enabled())
	assert.Contains(t, buf.String(), "invalid store url")
}

func TestConnect_UnreachableWarnsAndDisables(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	var buf bytes.Buffer
	s := Connect(context.Background(), "redis://"+addr,
		WithConnectLogger(zerolog.New(&buf)),
		WithDialTimeout(200*time.Millisecond),
	)

	assert.False(t, s.Enabled())
	assert.Contains(t, buf.String(), "store unreachable")
}

func TestConnect_ReachableReturnsRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s := Connect(context.Background(), "redis://"+mr.Addr())
	t.Cleanup(func() { _ = s.Close() })

	require.True(t, s.Enabled())
	_, err := s.IncrBy(context.Background(), "c", 1)
	require.NoError(t, err)
	v, _ := mr.Get("c")
	assert.Equal(t, "1", v)
}

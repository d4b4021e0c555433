package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient spins up an in-process Redis and returns a connected Client.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := New(context.Background(), ClientConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewPingsServer(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewFailsWhenUnreachable(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

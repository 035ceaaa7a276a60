package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) string {
	t.Helper()
	select {
	case msg := <-c.Send:
		return string(msg)
	default:
		t.Fatal("expected a queued message")
		return ""
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message %q", msg)
	default:
	}
}

func TestHub_DispatchRoutesByChannel(t *testing.T) {
	hub := NewHub()
	owner, err := hub.Register(7, nil)
	require.NoError(t, err)
	other, err := hub.Register(8, nil)
	require.NoError(t, err)
	anon, err := hub.Register(0, nil)
	require.NoError(t, err)

	hub.Dispatch(ActivityChannel, "public")
	assert.Equal(t, "public", receive(t, owner))
	assert.Equal(t, "public", receive(t, other))
	assert.Equal(t, "public", receive(t, anon))

	hub.Dispatch(UserChannel(7), "private")
	assert.Equal(t, "private", receive(t, owner))
	assertEmpty(t, other)
	assertEmpty(t, anon)

	hub.Dispatch("bogus:channel", "x")
	assertEmpty(t, owner)
}

func TestHub_RegisterLimits(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(3, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(3, nil)
	assert.ErrorIs(t, err, ErrUserFull)

	// Anonymous connections share user 0 and are only bounded by the total.
	for i := 0; i < maxConnsPerUser+1; i++ {
		_, err := hub.Register(0, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 2*maxConnsPerUser+1, hub.Count())
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(4, nil)
	require.NoError(t, err)

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)
	assert.Equal(t, 0, hub.Count())

	_, open := <-c.Send
	assert.False(t, open)

	// Sending to a removed client must not panic.
	c.TrySend([]byte("late"))
}

func TestClient_TrySendDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(5, nil)
	require.NoError(t, err)

	for i := 0; i < sendBufferSize; i++ {
		c.TrySend([]byte("msg"))
	}
	c.TrySend([]byte("overflow"))
	assert.Len(t, c.Send, sendBufferSize)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Count())
}

func TestHub_ShutdownClosesEverySend(t *testing.T) {
	hub := NewHub()
	anon, err := hub.Register(0, nil)
	require.NoError(t, err)
	first, err := hub.Register(7, nil)
	require.NoError(t, err)
	second, err := hub.Register(7, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Count())

	for _, c := range []*Client{anon, first, second} {
		_, open := <-c.Send
		assert.False(t, open)
		// A read pump exiting after shutdown must not close Send twice.
		hub.UnregisterClient(c)
	}
	assert.Equal(t, 0, hub.Count())

	again, err := hub.Register(7, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Count())
	hub.UnregisterClient(again)
}

package ws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	fail   bool
	closed bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.msgs = append(c.msgs, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func TestHubTargetsByKey(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(logrus.New())
	go h.Run(ctx)

	a, b := &fakeConn{}, &fakeConn{}
	h.Register <- &Client{Conn: a, Key: "dist-a"}
	h.Register <- &Client{Conn: b, Key: "dist-b"}

	require.True(t, h.SendToUsers([]string{"dist-a"}, []byte(`{"kind":"order_created"}`)))
	h.Broadcast <- []byte("all")

	require.Eventually(t, func() bool { return a.count() == 2 && b.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubDropsBrokenClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(logrus.New())
	go h.Run(ctx)

	broken := &fakeConn{fail: true}
	h.Register <- &Client{Conn: broken, Key: "k"}
	h.SendToUsers([]string{"k"}, []byte("x"))

	assert.Eventually(t, func() bool {
		broken.mu.Lock()
		defer broken.mu.Unlock()
		return broken.closed
	}, time.Second, 5*time.Millisecond)
}

package ws

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// textMessage matches websocket.TextMessage.
const textMessage = 1

// Client is one dashboard connection, keyed by the distributor it belongs to.
type Client struct {
	Conn Conn
	Key  string
}

type targeted struct {
	keys []string
	data []byte
}

type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	Broadcast  chan []byte
	targeted   chan targeted
	clients    map[*Client]bool
	done       chan struct{}
	log        *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Broadcast:  make(chan []byte, 64),
		targeted:   make(chan targeted, 256),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		log:        log,
	}
}

// SendToUsers queues data for every client registered under one of keys.
// It never blocks; when the hub is saturated the message is dropped.
func (h *Hub) SendToUsers(keys []string, data []byte) bool {
	select {
	case h.targeted <- targeted{keys: keys, data: data}:
		return true
	default:
		h.log.WithField("keys", keys).Warn("ws hub saturated, dropping message")
		return false
	}
}

// Join registers c. It returns false once the hub has stopped.
func (h *Hub) Join(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters c; after shutdown it returns immediately.
func (h *Hub) Leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.Conn.Close()
				delete(h.clients, c)
			}
			return

		case c := <-h.Register:
			h.clients[c] = true
			h.log.WithField("key", c.Key).Debug("ws client connected")

		case c := <-h.Unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Conn.Close()
			}

		case message := <-h.Broadcast:
			for c := range h.clients {
				h.write(c, message)
			}

		case m := <-h.targeted:
			want := make(map[string]bool, len(m.keys))
			for _, k := range m.keys {
				want[k] = true
			}
			for c := range h.clients {
				if want[c.Key] {
					h.write(c, m.data)
				}
			}
		}
	}
}

func (h *Hub) write(c *Client, data []byte) {
	if err := c.Conn.WriteMessage(textMessage, data); err != nil {
		c.Conn.Close()
		delete(h.clients, c)
	}
}

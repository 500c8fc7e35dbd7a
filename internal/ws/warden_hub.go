package ws

import (
	"context"
	"encoding/json"
)

type wardenClient struct {
	pump
}

// WardenHub fans events out to every connected warden dashboard.
type WardenHub struct {
	register   chan *wardenClient
	unregister chan *wardenClient
	done       chan struct{}
	broadcast  chan []byte
	clients    map[*wardenClient]struct{}
}

func NewWardenHub() *WardenHub {
	return &WardenHub{
		register:   make(chan *wardenClient),
		unregister: make(chan *wardenClient),
		done:       make(chan struct{}),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*wardenClient]struct{}),
	}
}

func (h *WardenHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Broadcast never blocks the caller; events are dropped when the hub is
// backed up.
func (h *WardenHub) Broadcast(ev Event) {
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
	}
}

package ws

import (
	"context"
	"encoding/json"
)

type studentNotification struct {
	studentID string
	payload   []byte
}

type studentClient struct {
	pump
	userID string
}

// StudentHub keeps one connection per student; a new connection replaces the
// previous one.
type StudentHub struct {
	register   chan *studentClient
	unregister chan *studentClient
	done       chan struct{}
	notify     chan studentNotification
	clients    map[string]*studentClient
}

func NewStudentHub() *StudentHub {
	return &StudentHub{
		register:   make(chan *studentClient),
		unregister: make(chan *studentClient),
		done:       make(chan struct{}),
		notify:     make(chan studentNotification, 256),
		clients:    make(map[string]*studentClient),
	}
}

func (h *StudentHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			return
		case client := <-h.register:
			if existing, ok := h.clients[client.userID]; ok {
				close(existing.send)
			}
			h.clients[client.userID] = client
		case client := <-h.unregister:
			if stored, ok := h.clients[client.userID]; ok && stored == client {
				delete(h.clients, client.userID)
				close(client.send)
			}
		case msg := <-h.notify:
			if client, ok := h.clients[msg.studentID]; ok {
				select {
				case client.send <- msg.payload:
				default:
					delete(h.clients, msg.studentID)
					close(client.send)
				}
			}
		}
	}
}

func (h *StudentHub) Notify(studentID string, ev Event) {
	if h == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.notify <- studentNotification{studentID: studentID, payload: data}:
	default:
	}
}

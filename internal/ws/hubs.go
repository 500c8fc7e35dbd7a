package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Event is the frame pushed to dashboards.
type Event struct {
	Type    string    `json:"type"`
	ID      string    `json:"id"`
	Status  string    `json:"status,omitempty"`
	Student string    `json:"student,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

const (
	EventGatepassPendingWarden = "gatepass.pending_warden"
	EventGatepassUpdated       = "gatepass.updated"
	EventAllotmentApplied      = "allotment.applied"
	EventAllotmentUpdated      = "allotment.updated"
)

type Hubs struct {
	Warden  *WardenHub
	Student *StudentHub
}

func NewHubs() *Hubs {
	return &Hubs{
		Warden:  NewWardenHub(),
		Student: NewStudentHub(),
	}
}

// Run drives both hubs until ctx is done.
func (h *Hubs) Run(ctx context.Context) {
	if h == nil {
		return
	}
	go h.Warden.Run(ctx)
	go h.Student.Run(ctx)
}

// NotifyWardens is safe on a nil receiver.
func (h *Hubs) NotifyWardens(ev Event) {
	if h == nil {
		return
	}
	h.Warden.Broadcast(ev)
}

func (h *Hubs) NotifyStudent(studentID string, ev Event) {
	if h == nil {
		return
	}
	h.Student.Notify(studentID, ev)
}

// handoff delivers c on ch unless the hub has stopped.
func handoff[T any](ch chan T, c T, done <-chan struct{}) bool {
	select {
	case ch <- c:
		return true
	case <-done:
		return false
	}
}

// pump is shared by both client kinds.
type pump struct {
	conn *websocket.Conn
	send chan []byte
}

func (p *pump) read(onClose func()) {
	defer onClose()
	p.conn.SetReadLimit(512)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (p *pump) write() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

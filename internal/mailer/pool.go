package mailer

import (
	"context"
	"sync"

	"github.com/zaqqye/college_portal_backend/internal/logging"
)

// Pool runs a fixed number of workers draining a bounded job queue.
type Pool struct {
	size   int
	jobs   chan Message
	sender Sender
	log    logging.Logger
	wg     sync.WaitGroup
}

func NewPool(size, queue int, sender Sender, log logging.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if queue <= 0 {
		queue = size
	}
	return &Pool{
		size:   size,
		jobs:   make(chan Message, queue),
		sender: sender,
		log:    log.With("component", "mail_pool"),
	}
}

// Start launches the workers. They exit when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case msg := <-p.jobs:
			if err := p.sender.Send(ctx, msg); err != nil {
				p.log.Error(ctx, "email delivery failed", "worker", id, "to", msg.To, "subject", msg.Subject, "error", err)
				continue
			}
			p.log.Info(ctx, "email delivered", "worker", id, "to", msg.To, "subject", msg.Subject)
		case <-ctx.Done():
			return
		}
	}
}

// Dispatch queues msg without blocking. It returns false when the queue is
// full and the message was dropped.
func (p *Pool) Dispatch(msg Message) bool {
	select {
	case p.jobs <- msg:
		return true
	default:
		return false
	}
}

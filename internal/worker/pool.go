// Package worker runs inbound updates on a bounded pool of goroutines, so a
// slow provider call for one user cannot starve the others.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog/log"
)

const updateTimeout = 60 * time.Second

// UpdateHandler processes one inbound update to completion.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update telego.Update)
}

type Pool struct {
	handler UpdateHandler
	jobs    chan telego.Update
	size    int
	wg      sync.WaitGroup
}

// NewPool creates a pool of size workers with a queue of 4x that depth.
func NewPool(handler UpdateHandler, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		handler: handler,
		jobs:    make(chan telego.Update, size*4),
		size:    size,
	}
}

// Run consumes updates until ctx is cancelled and the queue is drained after
// Close. It blocks; callers run it on its own goroutine.
func (p *Pool) Run(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for update := range p.jobs {
				p.process(ctx, update)
			}
		}()
	}
	p.wg.Wait()
}

func (p *Pool) process(ctx context.Context, update telego.Update) {
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()
	p.handler.HandleUpdate(ctx, update)
}

// Submit enqueues an update. When the queue is full the update is dropped and
// logged rather than blocking the transport.
func (p *Pool) Submit(update telego.Update) bool {
	select {
	case p.jobs <- update:
		return true
	default:
		log.Warn().Int("update_id", update.UpdateID).Msg("worker queue full, dropping update")
		return false
	}
}

// Close stops accepting updates; Run returns once queued work finishes.
func (p *Pool) Close() {
	close(p.jobs)
}

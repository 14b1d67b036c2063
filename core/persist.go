package session

import (
	"context"
	"sync"
	"time"
)

const persistTimeout = 10 * time.Second

// persister serializes record store writes on a single worker so that
// operations are issued in exactly the order the orchestrator created them.
// Failures are logged and never propagated back into the conversation.
type persister struct {
	ops       chan persistOp
	done      chan struct{}
	closeOnce sync.Once
}

type persistOp struct {
	desc  string
	apply func(ctx context.Context) error
}

func newPersister() *persister {
	p := &persister{
		ops:  make(chan persistOp, 64),
		done: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) run() {
	defer close(p.done)
	for op := range p.ops {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := op.apply(ctx); err != nil {
			logger.Warn("record store write failed", "op", op.desc, "error", err)
		}
		cancel()
	}
}

// enqueue never blocks the conversational loop: when the queue is full the
// write is dropped and logged.
func (p *persister) enqueue(desc string, apply func(ctx context.Context) error) {
	select {
	case p.ops <- persistOp{desc: desc, apply: apply}:
	default:
		logger.Warn("record store queue full, dropping write", "op", desc)
	}
}

// Close drains outstanding writes and stops the worker.
func (p *persister) Close() {
	p.closeOnce.Do(func() {
		close(p.ops)
		<-p.done
	})
}

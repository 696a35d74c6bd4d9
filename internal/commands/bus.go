package commands

import (
	"context"
	"sync"
)

// Bus dispatches commands to their registered handlers. The message service
// registers the message.send, message.reply, and message.delete handlers on
// construction; anything else yields ErrHandlerNotFound.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string]Handler)}
}

// Register binds a handler to a command type, replacing any previous binding.
func (b *Bus) Register(commandType string, handler Handler) {
	b.mu.Lock()
	b.handlers[commandType] = handler
	b.mu.Unlock()
}

func (b *Bus) Execute(ctx context.Context, cmd Command) (Result, error) {
	b.mu.RLock()
	h, ok := b.handlers[cmd.CommandType()]
	b.mu.RUnlock()
	if !ok {
		return Result{}, ErrHandlerNotFound
	}
	return h.Handle(ctx, cmd)
}

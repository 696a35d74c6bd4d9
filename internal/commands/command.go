package commands

import (
	"context"
	"errors"
)

type Command interface {
	CommandType() string
	Validate() error
}

type Result struct {
	AggregateID string
	Payload     interface{}
}

type Handler interface {
	Handle(ctx context.Context, cmd Command) (Result, error)
}

type HandlerFunc func(ctx context.Context, cmd Command) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) (Result, error) {
	return f(ctx, cmd)
}

var ErrHandlerNotFound = errors.New("command handler not found")

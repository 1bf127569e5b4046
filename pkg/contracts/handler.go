package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// HandlerFunc adapts a route registration function to Handler.
type HandlerFunc func(*httprouter.Router)

func (f HandlerFunc) RegisterRoutes(router *httprouter.Router) {
	f(router)
}

// Worker is a background loop that runs until ctx is cancelled.
type Worker interface {
	Run(ctx context.Context) error
}

type WorkerFunc func(ctx context.Context) error

func (f WorkerFunc) Run(ctx context.Context) error {
	return f(ctx)
}

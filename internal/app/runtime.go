package app

import (
	"context"
	"fmt"

	"github.com/kofiasare/sankofa/internal/chat"
	"github.com/kofiasare/sankofa/internal/config"
	"github.com/kofiasare/sankofa/internal/log"
)

// Runtime is a fully initialized application with the ask flow
// registered. The HTTP server builds a Runtime so it can mount the flow
// handler; the other entry points use Setup directly.
type Runtime struct {
	App  *App
	Flow *chat.Flow
}

// NewRuntime initializes the application and registers the ask flow on
// its Genkit instance.
func NewRuntime(ctx context.Context, cfg *config.Config, logger log.Logger) (*Runtime, error) {
	application, err := Setup(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing application: %w", err)
	}

	return &Runtime{
		App:  application,
		Flow: chat.NewFlow(application.Genkit, application.Chat),
	}, nil
}

// Close releases the runtime's resources.
func (r *Runtime) Close() error {
	return r.App.Close()
}

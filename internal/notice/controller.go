// Package notice shows the update notice banner.
package notice

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"homework/internal/view"
)

// API fetches the notice text.
type API interface {
	UpdateNotice(ctx context.Context) (string, error)
}

// Controller fetches the notice once. Failures leave the text empty and are
// only logged.
type Controller struct {
	api API
	log *zap.Logger

	fetch view.Action
	once  sync.Once

	mu   sync.Mutex
	text string
}

// New creates a notice banner. Nothing is fetched until Fetch.
func New(api API, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{api: api, log: log}
}

// Fetch loads the notice. Only the first call issues a request.
func (c *Controller) Fetch(ctx context.Context) {
	c.once.Do(func() {
		ctx, tk := c.fetch.Start(ctx)
		text, err := c.api.UpdateNotice(ctx)
		c.fetch.Finish(tk, err)
		if err != nil {
			c.log.Warn("fetch update notice failed", zap.Error(err))
			return
		}
		c.mu.Lock()
		c.text = text
		c.mu.Unlock()
	})
}

// Text returns the notice, empty when none was fetched.
func (c *Controller) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Phase returns the state of the fetch.
func (c *Controller) Phase() view.Phase { return c.fetch.Phase() }

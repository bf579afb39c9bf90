package facade

import (
	"context"
	"sync"

	"github.com/ludafarma/dbgate/internal/database"
	"github.com/ludafarma/dbgate/internal/database/mongodb"
	"github.com/ludafarma/dbgate/internal/database/postgres"
	"github.com/ludafarma/dbgate/pkg/logger"
)

// Controller owns the process-wide façade instance. The first Facade call
// builds the registry, both managers and the façade, and caches the
// result; later calls return the same instance. The entry point constructs
// one Controller and passes the façade down by dependency injection.
type Controller struct {
	configs    map[string]database.LogicalConfig
	logger     *logger.Logger
	relational []postgres.Option
	document   []mongodb.Option

	mu     sync.Mutex
	facade *Facade
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger handed to the façade and managers.
func WithControllerLogger(l *logger.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithRelationalOptions forwards options to the relational pool manager.
func WithRelationalOptions(opts ...postgres.Option) ControllerOption {
	return func(c *Controller) { c.relational = append(c.relational, opts...) }
}

// WithDocumentOptions forwards options to the document store manager.
func WithDocumentOptions(opts ...mongodb.Option) ControllerOption {
	return func(c *Controller) { c.document = append(c.document, opts...) }
}

// NewController creates a controller for the supplied logical database
// configurations.
func NewController(configs map[string]database.LogicalConfig, opts ...ControllerOption) *Controller {
	c := &Controller{configs: configs}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Facade returns the cached façade, constructing it on first call.
func (c *Controller) Facade() (*Facade, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.facade != nil {
		return c.facade, nil
	}

	registry, err := database.NewRegistry(c.configs)
	if err != nil {
		return nil, err
	}

	relOpts := c.relational
	docOpts := c.document
	if c.logger != nil {
		relOpts = append([]postgres.Option{postgres.WithLogger(c.logger)}, relOpts...)
		docOpts = append([]mongodb.Option{mongodb.WithLogger(c.logger)}, docOpts...)
	}

	c.facade = New(
		registry,
		postgres.NewPoolManager(registry, relOpts...),
		mongodb.NewManager(registry, docOpts...),
		c.logger,
	)
	return c.facade, nil
}

// Reset tears down every connection through the façade's aggregate close
// and clears the cached instance. Intended for test harnesses, never for
// production request paths.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.facade == nil {
		return nil
	}

	err := c.facade.CloseAll(ctx)
	c.facade = nil
	return err
}

// Package facade is the single entry point of the access layer: it
// resolves logical database names, enforces per-database capabilities,
// delegates to the engine managers and wraps every result in one
// normalized envelope.
package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ludafarma/dbgate/internal/database"
	"github.com/ludafarma/dbgate/internal/database/mongodb"
	"github.com/ludafarma/dbgate/pkg/logger"
)

// RelationalExecutor is the slice of the relational pool manager the
// façade depends on.
type RelationalExecutor interface {
	ExecuteStatement(ctx context.Context, name, sql string, args ...interface{}) ([]map[string]interface{}, error)
	TestConnection(ctx context.Context, name string) bool
	Close(name string) error
	CloseAll() error
}

// DocumentExecutor is the slice of the document store manager the façade
// depends on.
type DocumentExecutor interface {
	Find(ctx context.Context, name, collection string, filter map[string]interface{}, opts *mongodb.FindOptions) ([]map[string]interface{}, error)
	Count(ctx context.Context, name, collection string, filter map[string]interface{}) (int64, error)
	Aggregate(ctx context.Context, name, collection string, pipeline []map[string]interface{}) ([]map[string]interface{}, error)
	InsertOne(ctx context.Context, name, collection string, document map[string]interface{}) (string, error)
	UpdateMany(ctx context.Context, name, collection string, filter, update map[string]interface{}) (int64, error)
	DeleteMany(ctx context.Context, name, collection string, filter map[string]interface{}) (int64, error)
	TestConnection(ctx context.Context, name string) bool
	Close(ctx context.Context, name string) error
	CloseAll(ctx context.Context) error
}

// Facade routes validated requests to the engine managers.
type Facade struct {
	registry   *database.Registry
	relational RelationalExecutor
	document   DocumentExecutor
	logger     *logger.Logger
}

// New creates a façade over a registry and its two engine managers.
func New(registry *database.Registry, relational RelationalExecutor, document DocumentExecutor, log *logger.Logger) *Facade {
	return &Facade{
		registry:   registry,
		relational: relational,
		document:   document,
		logger:     log,
	}
}

// Execute validates the request, resolves its logical database, verifies
// the engine and capability, delegates to the matching manager and wraps
// the outcome in the result envelope. Execution time covers the delegated
// call only, not resolution or the capability check.
func (f *Facade) Execute(ctx context.Context, req Request) (*QueryResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg, err := f.registry.Resolve(req.Database())
	if err != nil {
		return nil, err
	}
	if cfg.Engine != req.engine() {
		return nil, database.NewEngineMismatchError(cfg.Name, req.engine(), cfg.Engine)
	}

	switch r := req.(type) {
	case RelationalRequest:
		return f.executeRelational(ctx, cfg, r)
	case DocumentRequest:
		return f.executeDocument(ctx, cfg, r)
	default:
		return nil, fmt.Errorf("%w: unsupported request type %T", database.ErrInvalidRequest, req)
	}
}

func (f *Facade) executeRelational(ctx context.Context, cfg *database.LogicalConfig, req RelationalRequest) (*QueryResult, error) {
	if !cfg.Capabilities.Allows(database.CapabilityRead) {
		return nil, database.NewPermissionDeniedError(cfg.Name, database.CapabilityRead)
	}

	requestID := uuid.NewString()
	f.debugf("Executing relational statement on %s (request %s)", cfg.Name, requestID)

	start := time.Now()
	data, err := f.relational.ExecuteStatement(ctx, cfg.Name, req.SQL, req.Args...)
	elapsed := time.Since(start)
	if err != nil {
		f.errorf("Relational statement on %s failed (request %s): %v", cfg.Name, requestID, err)
		return nil, err
	}

	return &QueryResult{
		Engine:   database.EngineRelational,
		Database: cfg.Name,
		Data:     data,
		Count:    len(data),
		Metadata: Metadata{ExecutionTimeMs: elapsed.Milliseconds()},
	}, nil
}

func (f *Facade) executeDocument(ctx context.Context, cfg *database.LogicalConfig, req DocumentRequest) (*QueryResult, error) {
	capability, ok := req.Operation.capability()
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation %q", database.ErrInvalidRequest, req.Operation)
	}

	// Capability check happens before the manager (and therefore the
	// driver) is ever invoked: a denied write has zero side effects.
	if !cfg.Capabilities.Allows(capability) {
		return nil, database.NewPermissionDeniedError(cfg.Name, capability)
	}

	requestID := uuid.NewString()
	f.debugf("Executing document %s on %s.%s (request %s)", req.Operation, cfg.Name, req.Collection, requestID)

	var data []map[string]interface{}
	var err error

	start := time.Now()
	switch req.Operation {
	case OpFind:
		data, err = f.document.Find(ctx, cfg.Name, req.Collection, req.Filter, req.Options)
	case OpCount:
		var count int64
		count, err = f.document.Count(ctx, cfg.Name, req.Collection, req.Filter)
		if err == nil {
			data = []map[string]interface{}{{"count": count}}
		}
	case OpAggregate:
		data, err = f.document.Aggregate(ctx, cfg.Name, req.Collection, req.Pipeline)
	case OpInsertOne:
		var insertedID string
		insertedID, err = f.document.InsertOne(ctx, cfg.Name, req.Collection, req.Document)
		if err == nil {
			data = []map[string]interface{}{{"insertedId": insertedID}}
		}
	case OpUpdateMany:
		var modified int64
		modified, err = f.document.UpdateMany(ctx, cfg.Name, req.Collection, req.Filter, req.Update)
		if err == nil {
			data = []map[string]interface{}{{"modifiedCount": modified}}
		}
	case OpDeleteMany:
		var deleted int64
		deleted, err = f.document.DeleteMany(ctx, cfg.Name, req.Collection, req.Filter)
		if err == nil {
			data = []map[string]interface{}{{"deletedCount": deleted}}
		}
	}
	elapsed := time.Since(start)

	if err != nil {
		f.errorf("Document %s on %s.%s failed (request %s): %v", req.Operation, cfg.Name, req.Collection, requestID, err)
		return nil, err
	}

	return &QueryResult{
		Engine:   database.EngineDocument,
		Database: cfg.Name,
		Data:     data,
		Count:    len(data),
		Metadata: Metadata{Collection: req.Collection, ExecutionTimeMs: elapsed.Milliseconds()},
	}, nil
}

// ListDatabases returns the registered (name, engine, isDefault) triples.
func (f *Facade) ListDatabases() []database.Info {
	return f.registry.List()
}

// DatabaseType returns the engine type of a logical database.
func (f *Facade) DatabaseType(name string) (database.EngineType, error) {
	return f.registry.EngineOf(name)
}

// HasDatabase reports whether a logical database name is registered.
func (f *Facade) HasDatabase(name string) bool {
	return f.registry.Has(name)
}

// TestConnection routes a health probe to the engine of the named
// database. Failures, including unknown names, report false.
func (f *Facade) TestConnection(ctx context.Context, name string) bool {
	cfg, err := f.registry.Resolve(name)
	if err != nil {
		return false
	}

	switch cfg.Engine {
	case database.EngineRelational:
		return f.relational.TestConnection(ctx, cfg.Name)
	case database.EngineDocument:
		return f.document.TestConnection(ctx, cfg.Name)
	default:
		return false
	}
}

// CloseAll tears down every pooled connection and client across both
// managers.
func (f *Facade) CloseAll(ctx context.Context) error {
	var errs []error
	if err := f.relational.CloseAll(); err != nil {
		errs = append(errs, err)
	}
	if err := f.document.CloseAll(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

func (f *Facade) debugf(format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debugf(format, args...)
	}
}

func (f *Facade) errorf(format string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Errorf(format, args...)
	}
}

package mongodb

import (
	"context"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"golang.org/x/sync/singleflight"

	"github.com/ludafarma/dbgate/internal/database"
	"github.com/ludafarma/dbgate/pkg/logger"
)

// ConnectFunc establishes a client handle for a resolved logical config.
// The default is Connect; tests inject counting stubs.
type ConnectFunc func(ctx context.Context, cfg *database.LogicalConfig) (*ClientHandle, error)

// FindOptions narrows a find to a window, an ordering, or a projection.
type FindOptions struct {
	Limit      int64             `json:"limit,omitempty"`
	Skip       int64             `json:"skip,omitempty"`
	Sort       map[string]string `json:"sort,omitempty"`       // field -> "asc" | "desc"
	Projection map[string]int    `json:"projection,omitempty"` // field -> 1 | 0
}

// Manager lazily creates and memoizes one client handle per logical
// database name. A handle whose post-connect ping fails is not memoized,
// so the next call retries connecting rather than reusing a broken
// reference. Concurrent first-time accesses for one name share a single
// in-flight connect.
type Manager struct {
	registry *database.Registry
	logger   *logger.Logger
	retry    database.RetryPolicy
	connect  ConnectFunc

	mu      sync.RWMutex
	handles map[string]*ClientHandle
	flight  singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for the manager.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithRetryPolicy sets the connect retry policy.
func WithRetryPolicy(p database.RetryPolicy) Option {
	return func(m *Manager) { m.retry = p }
}

// WithConnectFunc replaces the physical connect function.
func WithConnectFunc(f ConnectFunc) Option {
	return func(m *Manager) { m.connect = f }
}

// NewManager creates a document store manager over the given registry.
func NewManager(registry *database.Registry, opts ...Option) *Manager {
	m := &Manager{
		registry: registry,
		retry:    database.DefaultRetryPolicy(),
		connect:  Connect,
		handles:  make(map[string]*ClientHandle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetHandle resolves a logical name and returns its client handle,
// creating it on first use. An empty name resolves to the default
// database. The returned handle is identity-stable until the name is
// closed.
func (m *Manager) GetHandle(ctx context.Context, name string) (*ClientHandle, error) {
	cfg, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	handle, exists := m.handles[cfg.Name]
	m.mu.RUnlock()
	if exists {
		return handle, nil
	}

	v, err, _ := m.flight.Do(cfg.Name, func() (interface{}, error) {
		m.mu.RLock()
		handle, exists := m.handles[cfg.Name]
		m.mu.RUnlock()
		if exists {
			return handle, nil
		}

		handle, err := m.connectWithRetry(ctx, cfg)
		if err != nil {
			m.errorf("Failed to connect to document database %s: %v", cfg.Name, err)
			return nil, err
		}

		m.mu.Lock()
		m.handles[cfg.Name] = handle
		m.mu.Unlock()

		m.infof("Connected to document database %s", cfg.Name)
		return handle, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ClientHandle), nil
}

// Find returns the documents of a collection matching the filter.
func (m *Manager) Find(ctx context.Context, name, collection string, filter map[string]interface{}, findOpts *FindOptions) ([]map[string]interface{}, error) {
	handle, err := m.GetHandle(ctx, name)
	if err != nil {
		return nil, err
	}

	mongoOpts := options.Find()
	if findOpts != nil {
		if findOpts.Limit > 0 {
			mongoOpts.SetLimit(findOpts.Limit)
		}
		if findOpts.Skip > 0 {
			mongoOpts.SetSkip(findOpts.Skip)
		}
		if len(findOpts.Sort) > 0 {
			sortDoc := bson.D{}
			for field, order := range findOpts.Sort {
				sortOrder := 1
				if order == "desc" || order == "descending" || order == "-1" {
					sortOrder = -1
				}
				sortDoc = append(sortDoc, bson.E{Key: field, Value: sortOrder})
			}
			mongoOpts.SetSort(sortDoc)
		}
		if len(findOpts.Projection) > 0 {
			projectionDoc := bson.D{}
			for field, include := range findOpts.Projection {
				projectionDoc = append(projectionDoc, bson.E{Key: field, Value: include})
			}
			mongoOpts.SetProjection(projectionDoc)
		}
	}

	cursor, err := handle.Database().Collection(collection).Find(ctx, toBSONDoc(filter), mongoOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []map[string]interface{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}

	for i := range result {
		normalizeBSONTypes(result[i])
	}
	return result, nil
}

// Count returns the number of documents matching the filter.
func (m *Manager) Count(ctx context.Context, name, collection string, filter map[string]interface{}) (int64, error) {
	handle, err := m.GetHandle(ctx, name)
	if err != nil {
		return 0, err
	}

	count, err := handle.Database().Collection(collection).CountDocuments(ctx, toBSONDoc(filter))
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Aggregate runs an aggregation pipeline against a collection.
func (m *Manager) Aggregate(ctx context.Context, name, collection string, pipeline []map[string]interface{}) ([]map[string]interface{}, error) {
	handle, err := m.GetHandle(ctx, name)
	if err != nil {
		return nil, err
	}

	pipelineBSON := make([]bson.D, len(pipeline))
	for i, stage := range pipeline {
		pipelineBSON[i] = toBSONDoc(stage)
	}

	cursor, err := handle.Database().Collection(collection).Aggregate(ctx, pipelineBSON)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var result []map[string]interface{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, err
	}

	for i := range result {
		normalizeBSONTypes(result[i])
	}
	return result, nil
}

// InsertOne inserts a single document and returns its id. Documents
// without an _id get one assigned before the insert.
func (m *Manager) InsertOne(ctx context.Context, name, collection string, document map[string]interface{}) (string, error) {
	handle, err := m.GetHandle(ctx, name)
	if err != nil {
		return "", err
	}

	if _, hasID := document["_id"]; !hasID {
		document["_id"] = bson.NewObjectID()
	}

	result, err := handle.Database().Collection(collection).InsertOne(ctx, toBSONDoc(document))
	if err != nil {
		return "", err
	}

	if oid, ok := result.InsertedID.(bson.ObjectID); ok {
		return oid.Hex(), nil
	}
	return "", nil
}

// UpdateMany applies a $set update to every document matching the filter
// and returns the modified count.
func (m *Manager) UpdateMany(ctx context.Context, name, collection string, filter, update map[string]interface{}) (int64, error) {
	handle, err := m.GetHandle(ctx, name)
	if err != nil {
		return 0, err
	}

	updateDoc := bson.D{{Key: "$set", Value: toBSONDoc(update)}}
	result, err := handle.Database().Collection(collection).UpdateMany(ctx, toBSONDoc(filter), updateDoc)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// DeleteMany removes every document matching the filter and returns the
// deleted count.
func (m *Manager) DeleteMany(ctx context.Context, name, collection string, filter map[string]interface{}) (int64, error) {
	handle, err := m.GetHandle(ctx, name)
	if err != nil {
		return 0, err
	}

	result, err := handle.Database().Collection(collection).DeleteMany(ctx, toBSONDoc(filter))
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// ListCollections returns the collection names of the named database.
func (m *Manager) ListCollections(ctx context.Context, name string) ([]string, error) {
	handle, err := m.GetHandle(ctx, name)
	if err != nil {
		return nil, err
	}
	return handle.Database().ListCollectionNames(ctx, bson.D{})
}

// TestConnection acquires the named handle and pings it. Any failure is
// reported as false rather than an error.
func (m *Manager) TestConnection(ctx context.Context, name string) bool {
	handle, err := m.GetHandle(ctx, name)
	if err != nil {
		return false
	}
	if err := handle.Ping(ctx); err != nil {
		return false
	}
	return true
}

// Close disconnects the named handle and removes it from the memo map.
// Closing a name that was never connected is a no-op.
func (m *Manager) Close(ctx context.Context, name string) error {
	cfg, err := m.resolve(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	handle, exists := m.handles[cfg.Name]
	if !exists {
		return nil
	}

	if err := handle.Close(ctx); err != nil {
		m.errorf("Error closing document database %s: %v", cfg.Name, err)
		return err
	}
	delete(m.handles, cfg.Name)
	m.infof("Disconnected document database %s", cfg.Name)
	return nil
}

// CloseAll disconnects every handle and clears the memo map. The next
// GetHandle for any name creates a fresh connection.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, handle := range m.handles {
		if err := handle.Close(ctx); err != nil {
			m.errorf("Error closing document database %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.infof("Disconnected document database %s", name)
	}
	m.handles = make(map[string]*ClientHandle)
	return firstErr
}

// resolve looks up a logical name and rejects non-document engines.
func (m *Manager) resolve(name string) (*database.LogicalConfig, error) {
	cfg, err := m.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	if cfg.Engine != database.EngineDocument {
		return nil, database.NewEngineMismatchError(cfg.Name, database.EngineDocument, cfg.Engine)
	}
	return cfg, nil
}

func (m *Manager) connectWithRetry(ctx context.Context, cfg *database.LogicalConfig) (*ClientHandle, error) {
	var handle *ClientHandle
	operation := func() error {
		h, err := m.connect(ctx, cfg)
		if err != nil {
			return err
		}
		handle = h
		return nil
	}

	if !m.retry.Enabled() {
		if err := operation(); err != nil {
			return nil, database.NewConnectionError(cfg.Name, database.EngineDocument, err)
		}
		return handle, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.retry.InitialInterval
	policy.MaxInterval = m.retry.MaxInterval

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, m.retry.MaxRetries), ctx))
	if err != nil {
		return nil, database.NewConnectionError(cfg.Name, database.EngineDocument, err)
	}
	return handle, nil
}

func (m *Manager) infof(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Infof(format, args...)
	}
}

func (m *Manager) errorf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Errorf(format, args...)
	}
}

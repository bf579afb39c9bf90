package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"github.com/ludafarma/dbgate/internal/database"
	"github.com/ludafarma/dbgate/pkg/logger"
)

// ConnectFunc establishes a physical pool for a resolved logical config.
// The default is Connect; tests inject counting stubs.
type ConnectFunc func(ctx context.Context, cfg *database.LogicalConfig) (*pgxpool.Pool, error)

// PoolManager lazily creates and memoizes one pgx pool per logical
// database name. A pool is created on the first resolved access and reused
// until Close/CloseAll; concurrent first-time accesses for one name share
// a single in-flight connect.
type PoolManager struct {
	registry *database.Registry
	logger   *logger.Logger
	retry    database.RetryPolicy
	connect  ConnectFunc

	mu     sync.RWMutex
	pools  map[string]*pgxpool.Pool
	flight singleflight.Group
}

// Option configures a PoolManager.
type Option func(*PoolManager)

// WithLogger sets the logger for the pool manager.
func WithLogger(l *logger.Logger) Option {
	return func(m *PoolManager) { m.logger = l }
}

// WithRetryPolicy sets the connect retry policy.
func WithRetryPolicy(p database.RetryPolicy) Option {
	return func(m *PoolManager) { m.retry = p }
}

// WithConnectFunc replaces the physical connect function.
func WithConnectFunc(f ConnectFunc) Option {
	return func(m *PoolManager) { m.connect = f }
}

// NewPoolManager creates a pool manager over the given registry.
func NewPoolManager(registry *database.Registry, opts ...Option) *PoolManager {
	m := &PoolManager{
		registry: registry,
		retry:    database.DefaultRetryPolicy(),
		connect:  Connect,
		pools:    make(map[string]*pgxpool.Pool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetPool resolves a logical name and returns its pool, creating it on
// first use. An empty name resolves to the default database. The returned
// pool is identity-stable until the name is closed.
func (m *PoolManager) GetPool(ctx context.Context, name string) (*pgxpool.Pool, error) {
	cfg, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	pool, exists := m.pools[cfg.Name]
	m.mu.RUnlock()
	if exists {
		return pool, nil
	}

	v, err, _ := m.flight.Do(cfg.Name, func() (interface{}, error) {
		m.mu.RLock()
		pool, exists := m.pools[cfg.Name]
		m.mu.RUnlock()
		if exists {
			return pool, nil
		}

		pool, err := m.connectWithRetry(ctx, cfg)
		if err != nil {
			m.errorf("Failed to connect to relational database %s: %v", cfg.Name, err)
			return nil, err
		}

		m.mu.Lock()
		m.pools[cfg.Name] = pool
		m.mu.Unlock()

		m.infof("Connected to relational database %s", cfg.Name)
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*pgxpool.Pool), nil
}

// ExecuteStatement runs a statement through the named database's pool and
// returns the rows as column-keyed maps.
func (m *PoolManager) ExecuteStatement(ctx context.Context, name, sql string, args ...interface{}) ([]map[string]interface{}, error) {
	pool, err := m.GetPool(ctx, name)
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute statement: %w", err)
	}
	defer rows.Close()

	fieldDescriptions := rows.FieldDescriptions()
	columnNames := make([]string, len(fieldDescriptions))
	for i, desc := range fieldDescriptions {
		columnNames[i] = string(desc.Name)
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columnNames))
		valuePtrs := make([]interface{}, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}

		row := make(map[string]interface{})
		for i, colName := range columnNames {
			row[colName] = values[i]
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during iteration: %w", err)
	}

	return results, nil
}

// ListTables returns the names of the tables in the public schema.
func (m *PoolManager) ListTables(ctx context.Context, name string) ([]string, error) {
	rows, err := m.ExecuteStatement(ctx, name,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name")
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(rows))
	for _, row := range rows {
		if tableName, ok := row["table_name"].(string); ok {
			tables = append(tables, tableName)
		}
	}
	return tables, nil
}

// TestConnection acquires the named pool and pings it. Any failure is
// reported as false rather than an error, so health checks never crash
// the caller.
func (m *PoolManager) TestConnection(ctx context.Context, name string) bool {
	pool, err := m.GetPool(ctx, name)
	if err != nil {
		return false
	}
	if err := pool.Ping(ctx); err != nil {
		return false
	}
	return true
}

// PoolStat returns pool statistics for a connected logical database.
func (m *PoolManager) PoolStat(name string) (*pgxpool.Stat, error) {
	cfg, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	pool, exists := m.pools[cfg.Name]
	if !exists {
		return nil, fmt.Errorf("relational database %s is not connected", cfg.Name)
	}
	return pool.Stat(), nil
}

// Close ends the named pool and removes it from the memo map. Closing a
// name that was never connected is a no-op.
func (m *PoolManager) Close(name string) error {
	cfg, err := m.resolve(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pool, exists := m.pools[cfg.Name]
	if !exists {
		return nil
	}

	pool.Close()
	delete(m.pools, cfg.Name)
	m.infof("Disconnected relational database %s", cfg.Name)
	return nil
}

// CloseAll ends every pool and clears the memo map. The next GetPool for
// any name creates a fresh connection.
func (m *PoolManager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, pool := range m.pools {
		pool.Close()
		m.infof("Disconnected relational database %s", name)
	}
	m.pools = make(map[string]*pgxpool.Pool)
	return nil
}

// resolve looks up a logical name and rejects non-relational engines.
func (m *PoolManager) resolve(name string) (*database.LogicalConfig, error) {
	cfg, err := m.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	if cfg.Engine != database.EngineRelational {
		return nil, database.NewEngineMismatchError(cfg.Name, database.EngineRelational, cfg.Engine)
	}
	return cfg, nil
}

func (m *PoolManager) connectWithRetry(ctx context.Context, cfg *database.LogicalConfig) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	operation := func() error {
		p, err := m.connect(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}

	if !m.retry.Enabled() {
		if err := operation(); err != nil {
			return nil, database.NewConnectionError(cfg.Name, database.EngineRelational, err)
		}
		return pool, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.retry.InitialInterval
	policy.MaxInterval = m.retry.MaxInterval

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, m.retry.MaxRetries), ctx))
	if err != nil {
		return nil, database.NewConnectionError(cfg.Name, database.EngineRelational, err)
	}
	return pool, nil
}

func (m *PoolManager) infof(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Infof(format, args...)
	}
}

func (m *PoolManager) errorf(format string, args ...interface{}) {
	if m.logger != nil {
		m.logger.Errorf(format, args...)
	}
}

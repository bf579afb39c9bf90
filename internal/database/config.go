package database

import (
	"fmt"
	"strings"
	"time"
)

// EngineType identifies the backing store technology behind a logical
// database name.
type EngineType string

const (
	// EngineRelational is a SQL engine accessed through a connection pool.
	EngineRelational EngineType = "relational"
	// EngineDocument is a schema-flexible, collection-based engine.
	EngineDocument EngineType = "document"
)

// ParseEngine resolves an engine name or alias to its canonical type.
func ParseEngine(s string) (EngineType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "relational", "sql", "postgres", "postgresql":
		return EngineRelational, true
	case "document", "mongodb", "mongo":
		return EngineDocument, true
	default:
		return "", false
	}
}

// Capability names a single data operation class that can be granted to or
// withheld from a logical database.
type Capability string

const (
	CapabilityRead   Capability = "read"
	CapabilityInsert Capability = "insert"
	CapabilityUpdate Capability = "update"
	CapabilityDelete Capability = "delete"
)

// Capabilities is the per-logical-database capability set. Every logical
// database carries the full set regardless of engine; reads are granted by
// default, writes only when explicitly configured.
type Capabilities struct {
	Read   bool `json:"read"`
	Insert bool `json:"insert"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
}

// DefaultCapabilities returns the read-only capability set.
func DefaultCapabilities() Capabilities {
	return Capabilities{Read: true}
}

// Allows reports whether the set grants the named capability.
func (c Capabilities) Allows(capability Capability) bool {
	switch capability {
	case CapabilityRead:
		return c.Read
	case CapabilityInsert:
		return c.Insert
	case CapabilityUpdate:
		return c.Update
	case CapabilityDelete:
		return c.Delete
	default:
		return false
	}
}

// RelationalParams holds connection parameters for a relational engine.
type RelationalParams struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Username     string `json:"username,omitempty"`
	Password     string `json:"password,omitempty"`
	DatabaseName string `json:"databaseName"`
	SSL          bool   `json:"ssl,omitempty"`
	SSLMode      string `json:"sslMode,omitempty"`
	MaxConns     int32  `json:"maxConns,omitempty"`
}

// DocumentParams holds connection parameters for a document engine.
type DocumentParams struct {
	URI          string `json:"uri"`
	DatabaseName string `json:"databaseName"`
}

// LogicalConfig is the registered configuration for one logical database
// name. Instances are immutable after registration; the registry hands out
// pointers into its own copy.
type LogicalConfig struct {
	Name         string            `json:"name"`
	Engine       EngineType        `json:"engine"`
	Relational   *RelationalParams `json:"relational,omitempty"`
	Document     *DocumentParams   `json:"document,omitempty"`
	IsDefault    bool              `json:"isDefault,omitempty"`
	Capabilities Capabilities      `json:"capabilities"`
}

// Validate checks that the config carries the parameters its engine needs.
func (c *LogicalConfig) Validate() error {
	if c.Name == "" {
		return NewConfigurationError("", "logical database name is required")
	}

	switch c.Engine {
	case EngineRelational:
		if c.Relational == nil {
			return NewConfigurationError(c.Name, "relational connection parameters are required")
		}
		if c.Relational.Host == "" {
			return NewConfigurationError(c.Name, "relational host is required")
		}
		if c.Relational.DatabaseName == "" {
			return NewConfigurationError(c.Name, "relational database name is required")
		}
	case EngineDocument:
		if c.Document == nil {
			return NewConfigurationError(c.Name, "document connection parameters are required")
		}
		if c.Document.URI == "" {
			return NewConfigurationError(c.Name, "document connection URI is required")
		}
		if c.Document.DatabaseName == "" {
			return NewConfigurationError(c.Name, "document target database is required")
		}
	default:
		return NewConfigurationError(c.Name, fmt.Sprintf("unknown engine type %q", c.Engine))
	}

	return nil
}

// RetryPolicy bounds the exponential-backoff retry applied to first-time
// connection attempts. The zero value disables retries entirely.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the connect retry policy used when a manager
// is constructed without an explicit one.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

// Enabled reports whether the policy performs any retries at all.
func (p RetryPolicy) Enabled() bool {
	return p.MaxRetries > 0
}

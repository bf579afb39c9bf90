package facade

import (
	"fmt"

	"github.com/ludafarma/dbgate/internal/database"
	"github.com/ludafarma/dbgate/internal/database/mongodb"
)

// DocumentOperation names one collection-scoped operation on a document
// database.
type DocumentOperation string

const (
	OpFind       DocumentOperation = "find"
	OpCount      DocumentOperation = "count"
	OpAggregate  DocumentOperation = "aggregate"
	OpInsertOne  DocumentOperation = "insertOne"
	OpUpdateMany DocumentOperation = "updateMany"
	OpDeleteMany DocumentOperation = "deleteMany"
)

// capability maps an operation to the capability it requires.
func (op DocumentOperation) capability() (database.Capability, bool) {
	switch op {
	case OpFind, OpCount, OpAggregate:
		return database.CapabilityRead, true
	case OpInsertOne:
		return database.CapabilityInsert, true
	case OpUpdateMany:
		return database.CapabilityUpdate, true
	case OpDeleteMany:
		return database.CapabilityDelete, true
	default:
		return "", false
	}
}

// Request is a validated, engine-tagged query request. The two variants
// are RelationalRequest and DocumentRequest; the façade dispatches on the
// concrete type after validating the shape at the boundary.
type Request interface {
	// Database returns the logical database name, empty for the default.
	Database() string

	// Validate rejects malformed requests before any driver is involved.
	Validate() error

	engine() database.EngineType
}

// RelationalRequest runs a SQL statement against a relational database.
type RelationalRequest struct {
	Name string        `json:"name,omitempty"`
	SQL  string        `json:"sql"`
	Args []interface{} `json:"args,omitempty"`
}

// Database returns the logical database name.
func (r RelationalRequest) Database() string { return r.Name }

func (r RelationalRequest) engine() database.EngineType { return database.EngineRelational }

// Validate implements Request.
func (r RelationalRequest) Validate() error {
	if r.SQL == "" {
		return fmt.Errorf("%w: sql statement is required", database.ErrInvalidRequest)
	}
	return nil
}

// DocumentRequest runs a collection-scoped operation against a document
// database. Which payload field is required depends on the operation.
type DocumentRequest struct {
	Name       string                   `json:"name,omitempty"`
	Collection string                   `json:"collection"`
	Operation  DocumentOperation        `json:"operation"`
	Filter     map[string]interface{}   `json:"filter,omitempty"`
	Document   map[string]interface{}   `json:"document,omitempty"`
	Update     map[string]interface{}   `json:"update,omitempty"`
	Pipeline   []map[string]interface{} `json:"pipeline,omitempty"`
	Options    *mongodb.FindOptions     `json:"options,omitempty"`
}

// Database returns the logical database name.
func (r DocumentRequest) Database() string { return r.Name }

func (r DocumentRequest) engine() database.EngineType { return database.EngineDocument }

// Validate implements Request.
func (r DocumentRequest) Validate() error {
	if r.Collection == "" {
		return fmt.Errorf("%w: collection is required", database.ErrInvalidRequest)
	}

	switch r.Operation {
	case OpFind, OpCount, OpDeleteMany:
		// Filter may legitimately be empty (match-all).
	case OpAggregate:
		if len(r.Pipeline) == 0 {
			return fmt.Errorf("%w: aggregate requires a pipeline", database.ErrInvalidRequest)
		}
	case OpInsertOne:
		if len(r.Document) == 0 {
			return fmt.Errorf("%w: insertOne requires a document", database.ErrInvalidRequest)
		}
	case OpUpdateMany:
		if len(r.Update) == 0 {
			return fmt.Errorf("%w: updateMany requires an update document", database.ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown operation %q", database.ErrInvalidRequest, r.Operation)
	}

	return nil
}

// Metadata carries per-call details of a query result.
type Metadata struct {
	Table           string `json:"table,omitempty"`
	Collection      string `json:"collection,omitempty"`
	ExecutionTimeMs int64  `json:"executionTimeMs"`
}

// QueryResult is the normalized envelope every façade call returns,
// regardless of which engine answered.
type QueryResult struct {
	Engine   database.EngineType      `json:"databaseType"`
	Database string                   `json:"databaseName"`
	Data     []map[string]interface{} `json:"data"`
	Count    int                      `json:"count"`
	Metadata Metadata                 `json:"metadata"`
}

package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/ludafarma/dbgate/internal/database"
)

// pingTimeout bounds the liveness check performed right after connecting.
const pingTimeout = 10 * time.Second

// ClientHandle is the runtime handle for one logical document database:
// the driver client plus the target database it was configured for. The
// handle is owned by the Manager; callers receive references only.
type ClientHandle struct {
	name   string
	client *mongo.Client
	db     *mongo.Database
}

// Name returns the logical database name the handle belongs to.
func (h *ClientHandle) Name() string {
	return h.name
}

// Database returns the target database of the handle.
func (h *ClientHandle) Database() *mongo.Database {
	return h.db
}

// Ping verifies the server is reachable.
func (h *ClientHandle) Ping(ctx context.Context) error {
	return h.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client.
func (h *ClientHandle) Close(ctx context.Context) error {
	return h.client.Disconnect(ctx)
}

// Connect establishes a client for a document database and verifies
// liveness with a ping against the primary. A failed ping tears the client
// down again so a broken handle is never returned.
func Connect(ctx context.Context, cfg *database.LogicalConfig) (*ClientHandle, error) {
	params := cfg.Document

	clientOptions := options.Client().ApplyURI(params.URI)
	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %v", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("error pinging database: %v", err)
	}

	return &ClientHandle{
		name:   cfg.Name,
		client: client,
		db:     client.Database(params.DatabaseName),
	}, nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ErrNotConnected is returned by Holder when no connection could be made.
var ErrNotConnected = errors.New("mongo not connected")

// Holder owns the process-wide Mongo client. Concurrent callers share one
// in-flight connect attempt; a failed connect is retried on the next call.
type Holder struct {
	uri     string
	dbName  string
	timeout time.Duration
	connect func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error)

	group  singleflight.Group
	mu     sync.Mutex
	client *mongo.Client
}

func NewHolder(uri, dbName string, timeout time.Duration) *Holder {
	return &Holder{uri: uri, dbName: dbName, timeout: timeout, connect: ConnectMongo}
}

// Init connects if not yet connected. Calling it again after success is a no-op.
// The connect runs outside mu so Ping and Close never wait on it.
func (h *Holder) Init(ctx context.Context) error {
	if h.current() != nil {
		return nil
	}
	_, err, _ := h.group.Do("connect", func() (interface{}, error) {
		if h.current() != nil {
			return nil, nil
		}
		client, err := h.connect(ctx, h.uri, h.timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
		h.mu.Lock()
		h.client = client
		h.mu.Unlock()
		return nil, nil
	})
	return err
}

func (h *Holder) current() *mongo.Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client
}

// Database returns the configured database, connecting lazily.
func (h *Holder) Database(ctx context.Context) (*mongo.Database, error) {
	if err := h.Init(ctx); err != nil {
		return nil, err
	}
	client := h.current()
	if client == nil {
		// closed while connecting
		return nil, ErrNotConnected
	}
	return client.Database(h.dbName), nil
}

// Ping checks the held connection. It does not connect.
func (h *Holder) Ping(ctx context.Context) error {
	client := h.current()
	if client == nil {
		return ErrNotConnected
	}
	return client.Ping(ctx, readpref.Primary())
}

// Close disconnects the held client, if any.
func (h *Holder) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return nil
	}
	err := h.client.Disconnect(ctx)
	h.client = nil
	return err
}

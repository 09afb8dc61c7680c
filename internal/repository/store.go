package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// Store owns the process-wide Mongo client. It connects on first use, keeps the
// client for every later call and forgets it after a network error so the next
// call dials again.
type Store struct {
	uri     string
	dbName  string
	timeout time.Duration
	maxPool uint64
	log     *zap.Logger

	mu     sync.Mutex
	client *mongo.Client
	fixed  bool
}

func NewStore(uri, dbName string, timeout time.Duration, maxPool uint64, log *zap.Logger) *Store {
	return &Store{uri: uri, dbName: dbName, timeout: timeout, maxPool: maxPool, log: log}
}

// NewStoreWithClient wraps an already connected client. The client is never dropped.
func NewStoreWithClient(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, dbName: dbName, fixed: true, log: zap.NewNop()}
}

func (s *Store) Collection(ctx context.Context, name string) (*mongo.Collection, error) {
	db, err := s.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

func (s *Store) Database(ctx context.Context) (*mongo.Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client.Database(s.dbName), nil
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	opts := options.Client().ApplyURI(s.uri)
	if s.maxPool > 0 {
		opts.SetMaxPoolSize(s.maxPool)
	}
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	s.log.Info("connected to mongo", zap.String("database", s.dbName))
	s.client = client
	return client.Database(s.dbName), nil
}

// observe drops the cached client when err means the connection is gone.
func (s *Store) observe(err error) error {
	if err == nil || !mongo.IsNetworkError(err) {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fixed || s.client == nil {
		return err
	}
	s.log.Warn("mongo network error, dropping cached client", zap.Error(err))
	old := s.client
	s.client = nil
	go func() { _ = old.Disconnect(context.Background()) }()
	return err
}

func (s *Store) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Disconnect(ctx)
	s.client = nil
	return err
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jwalitptl/hospital-api/internal/config"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

const (
	doctorsCollection   = "doctors"
	patientsCollection  = "patients"
	surgeriesCollection = "surgeries"
	bookingsCollection  = "bookings"
)

// Store is a connected document database shared by the repositories.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	metrics *metrics.Metrics
}

// Connect dials the server and verifies it answers a ping.
func Connect(ctx context.Context, cfg config.MongoConfig, m *metrics.Metrics) (*Store, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Store{client: client, db: client.Database(cfg.Database), metrics: m}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// EnsureIndexes creates the indexes the repositories query by.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		surgeriesCollection: {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "doctor_ids", Value: 1}}},
			{Keys: bson.D{{Key: "patient_id", Value: 1}}},
		},
		bookingsCollection: {
			{Keys: bson.D{{Key: "surgery_id", Value: 1}}},
		},
		doctorsCollection: {
			{Keys: bson.D{{Key: "family_name", Value: 1}, {Key: "first_name", Value: 1}}},
		},
		patientsCollection: {
			{Keys: bson.D{{Key: "family_name", Value: 1}, {Key: "first_name", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// observe records the outcome and latency of one store operation.
func (s *Store) observe(collection, operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	if errors.Is(err, repository.ErrNotFound) {
		err = nil
	}
	s.metrics.DatabaseOperations.WithLabelValues(collection, operation, metrics.Status(err)).Inc()
	s.metrics.DatabaseLatency.WithLabelValues(collection, operation).Observe(time.Since(start).Seconds())
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}

var byName = bson.D{{Key: "family_name", Value: 1}, {Key: "first_name", Value: 1}}

package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/defectgraph/backend/internal/util"
)

// State is the lifecycle of an uploaded file.
type State string

const (
	StateUploaded   State = "uploaded"
	StateProcessing State = "processing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// ErrNotFound is returned when no status record exists for a file ID.
var ErrNotFound = errors.New("file status not found")

// FileStatus is the per-upload bookkeeping record.
type FileStatus struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Path              string    `json:"path"`
	State             State     `json:"state"`
	NodesUpserted     int       `json:"nodes_upserted"`
	RelationsUpserted int       `json:"relations_upserted"`
	RelationsSkipped  int       `json:"relations_skipped"`
	Errors            []string  `json:"errors,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Store keeps file status records in Redis. It also carries the in-flight
// flag that guarantees at most one parse per uploaded file.
type Store struct {
	client *redis.Client
}

// NewStoreParams configures the Redis connection.
type NewStoreParams struct {
	Addr     string
	Password string
	DB       int
}

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, params NewStoreParams) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     params.Addr,
		Password: params.Password,
		DB:       params.DB,
	})
	err := util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Store{client: client}, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func fileKey(id string) string {
	return "file:" + id
}

func processingKey(id string) string {
	return "file:" + id + ":processing"
}

// Set writes a status record, stamping UpdatedAt.
func (s *Store) Set(ctx context.Context, fileStatus FileStatus) error {
	fileStatus.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(fileStatus)
	if err != nil {
		return fmt.Errorf("marshal file status: %w", err)
	}
	if err := s.client.Set(ctx, fileKey(fileStatus.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("write file status: %w", err)
	}
	return nil
}

// Get reads the status record for a file ID.
func (s *Store) Get(ctx context.Context, id string) (*FileStatus, error) {
	raw, err := s.client.Get(ctx, fileKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read file status: %w", err)
	}
	var fileStatus FileStatus
	if err := json.Unmarshal(raw, &fileStatus); err != nil {
		return nil, fmt.Errorf("decode file status: %w", err)
	}
	return &fileStatus, nil
}

// TryAcquire claims the in-flight parse flag for a file. It returns false
// when another worker already holds it. The TTL guards against a worker
// dying mid-parse and leaving the file locked forever.
func (s *Store) TryAcquire(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, processingKey(id), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire processing flag: %w", err)
	}
	return ok, nil
}

// Release drops the in-flight parse flag.
func (s *Store) Release(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, processingKey(id)).Err(); err != nil {
		return fmt.Errorf("release processing flag: %w", err)
	}
	return nil
}

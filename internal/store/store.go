// Package store is the OrderStore: the authoritative persistence façade for
// Jobs and Requests over an external kv+pubsub engine. The engine's own
// transport is out of scope (SPEC_FULL.md §1); this package wires a concrete
// adapter against Redis (github.com/redis/go-redis/v9) because "surfaces
// live state to clients" needs something runnable end to end.
//
// The store has no internal locking of its own (SPEC_FULL.md §4.1):
// concurrent writers of the same key race. Callers serialize writes for a
// given job id through the owning RobotHandler, and for a given request id
// through the single WarehouseController writer.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"warehousefleet/internal/types"
)

// Store is the OrderStore. Safe for concurrent use by multiple callers; it
// holds no mutable state beyond the Redis connection itself.
type Store struct {
	rdb *redis.Client
	log *zap.Logger
}

// New wraps an already-connected *redis.Client. log may be nil.
func New(rdb *redis.Client, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{rdb: rdb, log: log.Named("order_store")}
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// SetJob upserts a Job and publishes its update notification. Returns
// (false, err) on a store write failure — the caller surfaces
// {success:false}; partial writes (e.g. a pickup job written but its
// sibling delivery job not) are tolerated, since derived status will then
// report ErrInconsistentState on read.
func (s *Store) SetJob(ctx context.Context, j types.Job) (bool, error) {
	fields, err := jobToFields(j)
	if err != nil {
		return false, fmt.Errorf("%w: %v", types.ErrStoreWrite, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, jobKey(j.ID), fields)
	pipe.Publish(ctx, jobUpdateChannel(j.ID), updatedPayload)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("set job failed", zap.String("job", j.ID.String()), zap.Error(err))
		return false, fmt.Errorf("%w: %v", types.ErrStoreWrite, err)
	}
	return true, nil
}

// SetRequest upserts a Request and publishes its update notification.
func (s *Store) SetRequest(ctx context.Context, r types.Request) (bool, error) {
	fields := requestToFields(r)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, requestKey(r.ID), fields)
	pipe.Publish(ctx, requestUpdateChannel(r.ID), updatedPayload)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("set request failed", zap.String("request", r.ID.String()), zap.Error(err))
		return false, fmt.Errorf("%w: %v", types.ErrStoreWrite, err)
	}
	return true, nil
}

// GetJob returns nil (not an error) when the key is absent.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	fields, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return fieldsToJob(id, fields)
}

// GetRequest returns nil (not an error) when the key is absent.
func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (*types.Request, error) {
	fields, err := s.rdb.HGetAll(ctx, requestKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get request %s: %w", id, err)
	}
	return fieldsToRequest(id, fields)
}

// GetJobs scans every job:* key. Missing or unparseable records are skipped,
// not errored, per SPEC_FULL.md §4.1.
func (s *Store) GetJobs(ctx context.Context) ([]types.Job, error) {
	ids, err := s.scanIDs(ctx, jobKeyPrefix)
	if err != nil {
		return nil, err
	}

	jobs := make([]types.Job, 0, len(ids))
	for _, id := range ids {
		job, err := s.GetJob(ctx, id)
		if err != nil {
			s.log.Warn("skipping unparseable job record", zap.String("job", id.String()), zap.Error(err))
			continue
		}
		if job == nil {
			continue
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// GetRequests scans every request:* key, skipping missing/unparseable records.
func (s *Store) GetRequests(ctx context.Context) ([]types.Request, error) {
	ids, err := s.scanIDs(ctx, requestKeyPrefix)
	if err != nil {
		return nil, err
	}

	requests := make([]types.Request, 0, len(ids))
	for _, id := range ids {
		req, err := s.GetRequest(ctx, id)
		if err != nil {
			s.log.Warn("skipping unparseable request record", zap.String("request", id.String()), zap.Error(err))
			continue
		}
		if req == nil {
			continue
		}
		requests = append(requests, *req)
	}
	return requests, nil
}

func (s *Store) scanIDs(ctx context.Context, prefix string) ([]uuid.UUID, error) {
	var (
		cursor uint64
		ids    []uuid.UUID
	)
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s*: %w", prefix, err)
		}
		for _, k := range keys {
			raw := k[len(prefix):]
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

// GetRequestStatus derives a Request's OrderStatus from its two member jobs.
// Condition table (first match wins), per SPEC_FULL.md §4.1:
//
//	either FAILED      -> FAILED
//	either CANCELED    -> CANCELED
//	both COMPLETED     -> COMPLETED
//	either IN_PROGRESS -> IN_PROGRESS
//	otherwise          -> QUEUING
//
// Fails with ErrInconsistentState if either referenced job is absent.
func (s *Store) GetRequestStatus(ctx context.Context, r types.Request) (types.OrderStatus, error) {
	pickup, err := s.GetJob(ctx, r.Pickup)
	if err != nil {
		return 0, err
	}
	delivery, err := s.GetJob(ctx, r.Delivery)
	if err != nil {
		return 0, err
	}
	if pickup == nil || delivery == nil {
		return 0, fmt.Errorf("request %s: %w", r.ID, types.ErrInconsistentState)
	}

	return DeriveRequestStatus(pickup.Status, delivery.Status), nil
}

// DeriveRequestStatus applies the condition table in isolation; it is what
// GetRequestStatus calls once both jobs are loaded, and tests call it directly.
func DeriveRequestStatus(pickup, delivery types.OrderStatus) types.OrderStatus {
	switch {
	case pickup == types.StatusFailed || delivery == types.StatusFailed:
		return types.StatusFailed
	case pickup == types.StatusCanceled || delivery == types.StatusCanceled:
		return types.StatusCanceled
	case pickup == types.StatusCompleted && delivery == types.StatusCompleted:
		return types.StatusCompleted
	case pickup == types.StatusInProgress || delivery == types.StatusInProgress:
		return types.StatusInProgress
	default:
		return types.StatusQueuing
	}
}

// Package offline queues remote mutations while the database is unreachable
// and replays them once connectivity returns.
package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pwendlys/viaja-mais/internal/localstore"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/retry"
)

const DefaultMaxRetries = 3

// OfflineIDPrefix marks ride ids minted while the database was unreachable.
const OfflineIDPrefix = "offline_"

// Executor applies one replayed operation against the remote database.
type Executor interface {
	Apply(ctx context.Context, op *models.PendingOperation) error
}

type Queue struct {
	store      *localstore.Store
	exec       Executor
	policy     *retry.Policy
	maxRetries int
	syncing    atomic.Bool
	now        func() time.Time
}

func NewQueue(store *localstore.Store, exec Executor, policy *retry.Policy, maxRetries int) *Queue {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Queue{
		store:      store,
		exec:       exec,
		policy:     policy,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// AddPendingOperation persists op at the tail of the queue.
func (q *Queue) AddPendingOperation(ctx context.Context, op *models.PendingOperation) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.CreatedAt.IsZero() {
		op.CreatedAt = q.now()
	}
	return localstore.UpdateJSON(ctx, q.store, localstore.KeyPendingOperations, func(ops *[]models.PendingOperation) error {
		*ops = append(*ops, *op)
		return nil
	})
}

func (q *Queue) ListPending(ctx context.Context) ([]models.PendingOperation, error) {
	ops, err := localstore.GetJSON[[]models.PendingOperation](ctx, q.store, localstore.KeyPendingOperations)
	if err != nil {
		return nil, err
	}
	if ops == nil {
		ops = []models.PendingOperation{}
	}
	return ops, nil
}

func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	ops, err := q.ListPending(ctx)
	return len(ops), err
}

// IsSyncing reports whether a drain is running.
func (q *Queue) IsSyncing() bool {
	return q.syncing.Load()
}

// SyncPendingOperations makes one pass over the queue in enqueue order.
// A call made while another pass is running returns a skipped report.
func (q *Queue) SyncPendingOperations(ctx context.Context) (models.SyncReport, error) {
	if !q.syncing.CompareAndSwap(false, true) {
		return models.SyncReport{Skipped: true}, nil
	}
	defer q.syncing.Store(false)

	var report models.SyncReport
	ops, err := q.ListPending(ctx)
	if err != nil {
		return report, err
	}

	for i := range ops {
		if ctx.Err() != nil {
			break
		}
		op := ops[i]
		report.Attempted++

		// One attempt per pass; retry_count is the only retry counter.
		err := q.policy.Do(ctx, retry.NonIdempotent, "sync "+op.Type+" "+op.Table, func(ctx context.Context) error {
			return q.exec.Apply(ctx, &op)
		})
		if err == nil {
			report.Succeeded++
			if err := q.remove(ctx, op.ID); err != nil {
				return report, err
			}
			if op.Type == models.OperationCreate && op.Table == "rides" {
				if err := q.removeOfflineRide(ctx, op.RecordID); err != nil {
					log.Printf("offline: failed to clear mirror of ride %s: %v", op.RecordID, err)
				}
			}
			continue
		}

		report.Failed++
		dropped, ferr := q.recordFailure(ctx, op.ID, err)
		if ferr != nil {
			return report, ferr
		}
		if dropped {
			report.Dropped++
			log.Printf("offline: dropping %s on %s (record %s) after %d attempts: %v",
				op.Type, op.Table, op.RecordID, q.maxRetries, err)
		}
	}

	remaining, err := q.PendingCount(ctx)
	if err != nil {
		return report, err
	}
	report.Remaining = remaining

	if report.Attempted > 0 {
		log.Printf("offline: sync finished: %d ok, %d failed, %d dropped, %d remaining",
			report.Succeeded, report.Failed, report.Dropped, report.Remaining)
	}
	return report, nil
}

func (q *Queue) remove(ctx context.Context, id string) error {
	return localstore.UpdateJSON(ctx, q.store, localstore.KeyPendingOperations, func(ops *[]models.PendingOperation) error {
		kept := (*ops)[:0]
		for _, op := range *ops {
			if op.ID != id {
				kept = append(kept, op)
			}
		}
		*ops = kept
		return nil
	})
}

// recordFailure bumps the retry counter and drops the operation at the ceiling.
func (q *Queue) recordFailure(ctx context.Context, id string, cause error) (bool, error) {
	dropped := false
	err := localstore.UpdateJSON(ctx, q.store, localstore.KeyPendingOperations, func(ops *[]models.PendingOperation) error {
		kept := (*ops)[:0]
		for _, op := range *ops {
			if op.ID == id {
				op.RetryCount++
				op.LastError = cause.Error()
				if op.RetryCount >= q.maxRetries {
					dropped = true
					continue
				}
			}
			kept = append(kept, op)
		}
		*ops = kept
		return nil
	})
	return dropped, err
}

// Clear discards every pending operation and offline ride.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.store.Delete(ctx, localstore.KeyPendingOperations); err != nil {
		return err
	}
	return q.store.Delete(ctx, localstore.KeyOfflineRides)
}

// CreateRideOffline mirrors the ride locally and queues its insert.
func (q *Queue) CreateRideOffline(ctx context.Context, ride *models.Ride) (*models.OfflineRide, error) {
	now := q.now()
	if ride.ID == "" {
		ride.ID = OfflineIDPrefix + uuid.New().String()
	}
	if ride.Status == "" {
		ride.Status = models.RideStatusRequested
	}
	if ride.CreatedAt.IsZero() {
		ride.CreatedAt = now
	}
	ride.UpdatedAt = now

	data, err := json.Marshal(ride)
	if err != nil {
		return nil, err
	}
	op := &models.PendingOperation{
		ID:        uuid.New().String(),
		Type:      models.OperationCreate,
		Table:     "rides",
		RecordID:  ride.ID,
		Data:      data,
		CreatedAt: now,
	}

	mirror := models.OfflineRide{Ride: *ride, IsOffline: true, OperationID: op.ID}
	err = localstore.UpdateJSON(ctx, q.store, localstore.KeyOfflineRides, func(rides *[]models.OfflineRide) error {
		*rides = append(*rides, mirror)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := q.AddPendingOperation(ctx, op); err != nil {
		return nil, err
	}
	return &mirror, nil
}

// UpdateRideOffline queues a partial update of a ride and applies it to the
// local mirror when one exists. The returned mirror is nil otherwise.
func (q *Queue) UpdateRideOffline(ctx context.Context, rideID string, changes map[string]interface{}) (*models.OfflineRide, error) {
	if rideID == "" {
		return nil, fmt.Errorf("ride id is required")
	}
	now := q.now()
	changes["updated_at"] = now

	data, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}

	var updated *models.OfflineRide
	err = localstore.UpdateJSON(ctx, q.store, localstore.KeyOfflineRides, func(rides *[]models.OfflineRide) error {
		for i := range *rides {
			if (*rides)[i].ID != rideID {
				continue
			}
			merged, err := mergeRide((*rides)[i].Ride, data)
			if err != nil {
				return err
			}
			(*rides)[i].Ride = merged
			r := (*rides)[i]
			updated = &r
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	op := &models.PendingOperation{
		Type:      models.OperationUpdate,
		Table:     "rides",
		RecordID:  rideID,
		Data:      data,
		CreatedAt: now,
	}
	if err := q.AddPendingOperation(ctx, op); err != nil {
		return nil, err
	}
	return updated, nil
}

func mergeRide(ride models.Ride, patch []byte) (models.Ride, error) {
	base, err := json.Marshal(ride)
	if err != nil {
		return ride, err
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return ride, err
	}
	changes := map[string]interface{}{}
	if err := json.Unmarshal(patch, &changes); err != nil {
		return ride, err
	}
	for k, v := range changes {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return ride, err
	}
	var out models.Ride
	if err := json.Unmarshal(merged, &out); err != nil {
		return ride, err
	}
	return out, nil
}

// ListOfflineRides returns mirrored rides, newest first.
func (q *Queue) ListOfflineRides(ctx context.Context) ([]models.OfflineRide, error) {
	rides, err := localstore.GetJSON[[]models.OfflineRide](ctx, q.store, localstore.KeyOfflineRides)
	if err != nil {
		return nil, err
	}
	if rides == nil {
		return []models.OfflineRide{}, nil
	}
	sort.SliceStable(rides, func(i, j int) bool {
		return rides[i].CreatedAt.After(rides[j].CreatedAt)
	})
	return rides, nil
}

// GetOfflineRide returns the local mirror of rideID, or nil when none is kept.
func (q *Queue) GetOfflineRide(ctx context.Context, rideID string) (*models.OfflineRide, error) {
	rides, err := localstore.GetJSON[[]models.OfflineRide](ctx, q.store, localstore.KeyOfflineRides)
	if err != nil {
		return nil, err
	}
	for i := range rides {
		if rides[i].ID == rideID {
			return &rides[i], nil
		}
	}
	return nil, nil
}

func (q *Queue) removeOfflineRide(ctx context.Context, rideID string) error {
	return localstore.UpdateJSON(ctx, q.store, localstore.KeyOfflineRides, func(rides *[]models.OfflineRide) error {
		kept := (*rides)[:0]
		for _, r := range *rides {
			if r.ID != rideID {
				kept = append(kept, r)
			}
		}
		*rides = kept
		return nil
	})
}

package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pwendlys/viaja-mais/internal/models"
)

// ChangeChannel is the NOTIFY channel the table_changes trigger writes to.
const ChangeChannel = "table_changes"

// ChangeFeed fans database row changes out to filtered subscribers.
type ChangeFeed interface {
	Subscribe(filter func(models.RowChange) bool) (<-chan models.RowChange, func())
}

type feedSubscriber struct {
	filter func(models.RowChange) bool
	ch     chan models.RowChange
}

// Feed is an in-process ChangeFeed. Slow subscribers lose events.
type Feed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*feedSubscriber
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]*feedSubscriber)}
}

func (f *Feed) Subscribe(filter func(models.RowChange) bool) (<-chan models.RowChange, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	sub := &feedSubscriber{filter: filter, ch: make(chan models.RowChange, 32)}
	f.subs[id] = sub

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(sub.ch)
		})
	}
}

func (f *Feed) Publish(change models.RowChange) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sub := range f.subs {
		if sub.filter != nil && !sub.filter(change) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			log.Printf("change feed: subscriber buffer full, dropping %s on %s", change.Type, change.Table)
		}
	}
}

// Listen holds one pooled connection on LISTEN table_changes and publishes
// every notification into the feed until ctx is done. Dropped connections
// are re-acquired after retryDelay.
func (f *Feed) Listen(ctx context.Context, pool *pgxpool.Pool, retryDelay time.Duration) {
	for {
		err := f.listenOnce(ctx, pool)
		if ctx.Err() != nil {
			return
		}
		log.Printf("change feed: listener stopped: %v", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func (f *Feed) listenOnce(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return err
	}
	log.Printf("change feed: listening on %s", ChangeChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		change, err := DecodeRowChange([]byte(n.Payload))
		if err != nil {
			log.Printf("change feed: bad payload: %v", err)
			continue
		}
		f.Publish(change)
	}
}

func DecodeRowChange(payload []byte) (models.RowChange, error) {
	var change models.RowChange
	err := json.Unmarshal(payload, &change)
	return change, err
}

// OwnedBy matches changes whose new or old row references userID as
// patient_id or driver_id.
func OwnedBy(userID string) func(models.RowChange) bool {
	return func(change models.RowChange) bool {
		return rowOwnedBy(change.Record, userID) || rowOwnedBy(change.OldRecord, userID)
	}
}

func rowOwnedBy(raw json.RawMessage, userID string) bool {
	if len(raw) == 0 {
		return false
	}
	var row struct {
		PatientID *string `json:"patient_id"`
		DriverID  *string `json:"driver_id"`
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return false
	}
	return (row.PatientID != nil && *row.PatientID == userID) ||
		(row.DriverID != nil && *row.DriverID == userID)
}

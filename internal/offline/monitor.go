package offline

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/retry"
)

// Pinger reports whether the remote database answers.
type Pinger interface {
	Health(ctx context.Context) error
}

// Monitor tracks connectivity and drains the queue when it comes back.
type Monitor struct {
	queue    *Queue
	pinger   Pinger
	interval time.Duration
	backoff  *retry.Policy
	online   atomic.Bool
	force    chan struct{}

	mu       sync.Mutex
	onChange []func(online bool)
}

func NewMonitor(queue *Queue, pinger Pinger, interval time.Duration, backoff *retry.Policy) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		queue:    queue,
		pinger:   pinger,
		interval: interval,
		backoff:  backoff,
		force:    make(chan struct{}, 1),
	}
}

func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// OnChange registers a callback fired on every connectivity transition.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	m.onChange = append(m.onChange, fn)
	m.mu.Unlock()
}

// ForceSync asks the running monitor for an immediate drain.
func (m *Monitor) ForceSync() {
	select {
	case m.force <- struct{}{}:
	default:
	}
}

// Run polls connectivity until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var (
		timer   *time.Timer
		retryC  <-chan time.Time
		attempt int
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		retryC = nil
	}
	schedule := func(report models.SyncReport) {
		stopTimer()
		if report.Skipped {
			return
		}
		if report.Remaining == 0 || !m.IsOnline() {
			attempt = 0
			return
		}
		attempt++
		timer = time.NewTimer(m.backoff.Delay(attempt))
		retryC = timer.C
	}

	if m.check(ctx) {
		schedule(m.sync(ctx))
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-ticker.C:
			if m.check(ctx) {
				schedule(m.sync(ctx))
			}
		case <-m.force:
			schedule(m.sync(ctx))
		case <-retryC:
			retryC = nil
			schedule(m.sync(ctx))
		}
	}
}

// check pings the database and reports an offline to online transition.
func (m *Monitor) check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err := m.pinger.Health(pingCtx)
	cancel()

	online := err == nil
	prev := m.online.Swap(online)
	if prev == online {
		return false
	}

	if online {
		log.Printf("offline: connectivity restored")
	} else {
		log.Printf("offline: connectivity lost: %v", err)
	}

	m.mu.Lock()
	hooks := append([]func(bool){}, m.onChange...)
	m.mu.Unlock()
	for _, fn := range hooks {
		fn(online)
	}
	return online
}

func (m *Monitor) sync(ctx context.Context) models.SyncReport {
	report, err := m.queue.SyncPendingOperations(ctx)
	if err != nil {
		log.Printf("offline: sync failed: %v", err)
	}
	return report
}

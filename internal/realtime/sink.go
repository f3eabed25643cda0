package realtime

import (
	"log"
	"sync"

	"github.com/pwendlys/viaja-mais/internal/models"
)

// Fanout is a Sink that copies notifications to every stream a user has open.
type Fanout struct {
	mu      sync.RWMutex
	streams map[string]map[chan models.Notification]struct{}
}

func NewFanout() *Fanout {
	return &Fanout{streams: make(map[string]map[chan models.Notification]struct{})}
}

// Register opens a stream for userID. The returned func closes it.
func (f *Fanout) Register(userID string) (<-chan models.Notification, func()) {
	ch := make(chan models.Notification, 10)

	f.mu.Lock()
	if f.streams[userID] == nil {
		f.streams[userID] = make(map[chan models.Notification]struct{})
	}
	f.streams[userID][ch] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			if streams, ok := f.streams[userID]; ok {
				delete(streams, ch)
				if len(streams) == 0 {
					delete(f.streams, userID)
				}
			}
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *Fanout) Deliver(userID string, n models.Notification) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for ch := range f.streams[userID] {
		select {
		case ch <- n:
		default:
			log.Printf("notification stream for user %s is full, dropping %s", userID, n.ID)
		}
	}
}

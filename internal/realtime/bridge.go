package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pwendlys/viaja-mais/internal/models"
	"github.com/pwendlys/viaja-mais/internal/retry"
)

const (
	HistoryLimit = 50

	// NotificationFunction is the remote function that fans notifications out.
	NotificationFunction = "realtime-notifications"
)

var errStreamClosed = errors.New("subscription stream closed")

// Sink receives every notification a bridge surfaces.
type Sink interface {
	Deliver(userID string, n models.Notification)
}

// FunctionInvoker calls a named remote function with a JSON body.
type FunctionInvoker interface {
	Invoke(ctx context.Context, name string, body []byte) (json.RawMessage, error)
}

type Config struct {
	ConnectTimeout    time.Duration
	HeartbeatInterval time.Duration
	BackoffBase       time.Duration
	BackoffMax        time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = time.Minute
	}
	return c
}

// Bridge keeps one user's subscriptions alive and turns incoming events
// into notifications.
type Bridge struct {
	userID    string
	channels  []string
	transport Transport
	feed      ChangeFeed
	sink      Sink
	invoker   FunctionInvoker
	cfg       Config
	backoff   *retry.Policy
	now       func() time.Time

	mu       sync.RWMutex
	state    State
	history  []models.Notification
	watchers []func(State)

	cancel context.CancelFunc
	done   chan struct{}
}

// ChannelsFor lists the broadcast channels a user listens on.
func ChannelsFor(userID, role string, custom ...string) []string {
	channels := []string{UserChannel(userID)}
	if role == models.RoleDriver {
		channels = append(channels, ChannelRideRequests)
	}
	for _, c := range custom {
		if c == "" || contains(channels, c) {
			continue
		}
		channels = append(channels, c)
	}
	return channels
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NewBridge builds a bridge. feed, sink and invoker may be nil.
func NewBridge(userID string, channels []string, transport Transport, feed ChangeFeed, sink Sink, invoker FunctionInvoker, cfg Config) *Bridge {
	cfg = cfg.withDefaults()
	return &Bridge{
		userID:    userID,
		channels:  channels,
		transport: transport,
		feed:      feed,
		sink:      sink,
		invoker:   invoker,
		cfg:       cfg,
		backoff:   retry.NewPolicy(1, cfg.BackoffBase, cfg.BackoffMax),
		now:       time.Now,
		state:     State{Kind: StateDisconnected},
	}
}

func (b *Bridge) UserID() string {
	return b.userID
}

// Start runs the connection loop in a goroutine. It is a no-op when the
// bridge is already running.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	if b.cancel != nil {
		b.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	go b.run(ctx, done)
}

// Close stops the loop and waits for it to exit.
func (b *Bridge) Close() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (b *Bridge) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Bridge) IsConnected() bool {
	return b.State().Kind == StateConnected
}

// OnStateChange registers fn to run on every state transition.
func (b *Bridge) OnStateChange(fn func(State)) {
	b.mu.Lock()
	b.watchers = append(b.watchers, fn)
	b.mu.Unlock()
}

// History returns received notifications, newest first.
func (b *Bridge) History() []models.Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Notification, len(b.history))
	copy(out, b.history)
	return out
}

func (b *Bridge) ClearHistory() {
	b.mu.Lock()
	b.history = nil
	b.mu.Unlock()
}

// SendNotification asks the notification function to deliver a message to
// this bridge's user.
func (b *Bridge) SendNotification(ctx context.Context, notificationType, message string, data json.RawMessage) error {
	return SendNotification(ctx, b.invoker, b.userID, notificationType, message, data)
}

// SendNotification invokes the notification function for userID. It needs no
// running bridge; the function publishes on the user's channel itself.
func SendNotification(ctx context.Context, invoker FunctionInvoker, userID, notificationType, message string, data json.RawMessage) error {
	if invoker == nil {
		return fmt.Errorf("send notification: no function invoker configured")
	}
	body, err := json.Marshal(struct {
		Action string `json:"action"`
		models.SendNotificationRequest
	}{
		Action: "send_notification",
		SendNotificationRequest: models.SendNotificationRequest{
			UserID:  userID,
			Type:    notificationType,
			Message: message,
			Data:    data,
		},
	})
	if err != nil {
		return err
	}
	_, err = invoker.Invoke(ctx, NotificationFunction, body)
	return err
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	if b.state == s {
		b.mu.Unlock()
		return
	}
	prev := b.state
	b.state = s
	watchers := make([]func(State), len(b.watchers))
	copy(watchers, b.watchers)
	b.mu.Unlock()

	log.Printf("realtime: %s %s -> %s", b.userID, prev, s)
	for _, fn := range watchers {
		fn(s)
	}
}

func (b *Bridge) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer b.setState(State{Kind: StateDisconnected})

	attempt := 0
	for {
		b.setState(State{Kind: StateConnecting, Attempt: attempt})
		connected, err := b.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			attempt = 0
		}
		attempt++
		log.Printf("realtime: %s session ended: %v", b.userID, err)

		b.setState(State{Kind: StateBackoff, Attempt: attempt})
		timer := time.NewTimer(b.backoff.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session subscribes, waits for the acknowledgement and pumps events until
// the stream breaks. connected reports whether the acknowledgement arrived.
func (b *Bridge) session(ctx context.Context) (connected bool, err error) {
	sub, err := b.transport.Subscribe(ctx, b.channels...)
	if err != nil {
		return false, err
	}
	defer sub.Close()

	readyCtx, cancel := context.WithTimeout(ctx, b.cfg.ConnectTimeout)
	err = sub.Ready(readyCtx)
	cancel()
	if err != nil {
		return false, fmt.Errorf("subscription not acknowledged: %w", err)
	}

	var changes <-chan models.RowChange
	if b.feed != nil {
		ch, unsubscribe := b.feed.Subscribe(OwnedBy(b.userID))
		defer unsubscribe()
		changes = ch
	}

	b.setState(State{Kind: StateConnected})

	heartbeat := time.NewTicker(b.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-sub.Messages():
			if !ok {
				return true, errStreamClosed
			}
			b.push(b.fromMessage(msg))
		case change, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			b.push(b.fromChange(change))
		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, b.cfg.ConnectTimeout)
			err := sub.Ping(pingCtx)
			cancel()
			if err != nil {
				return true, fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}

func (b *Bridge) fromMessage(msg Message) models.Notification {
	n := models.Notification{
		ID:         uuid.New().String(),
		Channel:    msg.Channel,
		ReceivedAt: b.now(),
	}
	var payload models.NotificationPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Type == "" {
		n.Type = models.NotificationGeneric
		n.Body = string(msg.Payload)
		return n
	}
	n.Type = payload.Type
	n.Title = payload.Title
	n.Body = payload.Body
	n.Data = payload.Data
	return n
}

func (b *Bridge) fromChange(change models.RowChange) models.Notification {
	data := change.Record
	if len(data) == 0 {
		data = change.OldRecord
	}
	return models.Notification{
		ID:         uuid.New().String(),
		Channel:    ChangeChannel,
		Type:       models.NotificationRowChange,
		Title:      "Atualização em " + change.Table,
		Body:       change.Type,
		Data:       data,
		ReceivedAt: b.now(),
	}
}

func (b *Bridge) push(n models.Notification) {
	b.mu.Lock()
	b.history = append([]models.Notification{n}, b.history...)
	if len(b.history) > HistoryLimit {
		b.history = b.history[:HistoryLimit]
	}
	b.mu.Unlock()

	if b.sink != nil {
		b.sink.Deliver(b.userID, n)
	}
}

package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Broadcast channel names.
const (
	ChannelRideRequests = "ride_requests"
	userChannelPrefix   = "user_"
)

var errSubscriptionClosed = errors.New("subscription closed")

func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

type Message struct {
	Channel string
	Payload []byte
}

// Transport is a push-style channel broker.
type Transport interface {
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Subscription delivers messages only after Ready has returned nil.
type Subscription interface {
	Ready(ctx context.Context) error
	Messages() <-chan Message
	Ping(ctx context.Context) error
	Close() error
}

type redisTransport struct {
	client *redis.Client
}

func NewRedisTransport(client *redis.Client) Transport {
	return &redisTransport{client: client}
}

func (t *redisTransport) Subscribe(ctx context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("subscribe: no channels")
	}
	return &redisSubscription{
		ps:       t.client.Subscribe(ctx, channels...),
		expected: len(channels),
		out:      make(chan Message, 64),
		done:     make(chan struct{}),
	}, nil
}

func (t *redisTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.client.Publish(ctx, channel, payload).Err()
}

type redisSubscription struct {
	ps       *redis.PubSub
	expected int
	out      chan Message
	done     chan struct{}
	started  bool
}

// Ready waits for one subscribe acknowledgement per channel.
func (s *redisSubscription) Ready(ctx context.Context) error {
	for acked := 0; acked < s.expected; {
		reply, err := s.ps.Receive(ctx)
		if err != nil {
			return err
		}
		switch r := reply.(type) {
		case *redis.Subscription:
			if r.Kind == "subscribe" {
				acked++
			}
		case *redis.Message:
			// A publish raced the last acknowledgement.
			if err := s.deliver(ctx, Message{Channel: r.Channel, Payload: []byte(r.Payload)}); err != nil {
				return err
			}
		}
	}

	s.started = true
	go s.forward()
	return nil
}

// deliver queues an early message without outliving ctx or Close.
func (s *redisSubscription) deliver(ctx context.Context, msg Message) error {
	select {
	case s.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return errSubscriptionClosed
	}
}

func (s *redisSubscription) forward() {
	defer close(s.out)
	for msg := range s.ps.Channel() {
		select {
		case s.out <- Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Messages() <-chan Message {
	return s.out
}

func (s *redisSubscription) Ping(ctx context.Context) error {
	return s.ps.Ping(ctx)
}

func (s *redisSubscription) Close() error {
	close(s.done)
	err := s.ps.Close()
	if !s.started {
		close(s.out)
	}
	return err
}

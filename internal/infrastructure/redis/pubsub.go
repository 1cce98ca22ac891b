package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Message is a single inbound pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// Publish sends a message to a pub/sub channel.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - channel: Channel name to publish to
//   - message: Serialized message payload (typically JSON)
//
// Returns:
//   - int64: The number of subscribers that received the message
//   - error: nil on success, otherwise the underlying store error
func (s *Store) Publish(ctx context.Context, channel string, message string) (int64, error) {
	if channel == "" {
		return 0, ErrInvalidChannel
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	count, err := s.client.Publish(opCtx, channel, message).Result()
	if err != nil {
		return 0, fmt.Errorf("publishing to %q: %w", channel, err)
	}
	return count, nil
}

// Subscription is an active pub/sub subscription on a dedicated connection.
//
// Messages() yields an unbounded sequence of inbound messages; the channel
// is closed when the subscription is closed or the connection drops
// permanently. Close() unsubscribes and releases the connection.
type Subscription struct {
	ps   *goredis.PubSub
	msgs chan Message
}

// Subscribe opens a subscription to the given channel.
//
// The subscription uses a dedicated connection as required by the Redis
// protocol, so it does not contend with regular store operations. The
// returned Subscription must be closed by the caller.
//
// Parameters:
//   - ctx: Context for the subscription handshake
//   - channel: Channel name to subscribe to
//
// Returns:
//   - *Subscription: Active subscription
//   - error: If the subscription handshake fails
func (s *Store) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	if channel == "" {
		return nil, ErrInvalidChannel
	}

	ps := s.client.Subscribe(ctx, channel)

	// Wait for the subscription confirmation so a broken connection
	// surfaces here rather than as a silently empty message stream.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("%w: subscribing to %q: %w", ErrConnectionFailed, channel, err)
	}

	sub := &Subscription{
		ps:   ps,
		msgs: make(chan Message),
	}

	// Pump go-redis messages into our channel. The goroutine exits when
	// the PubSub is closed, which closes its source channel.
	go func() {
		defer close(sub.msgs)
		for msg := range ps.Channel() {
			sub.msgs <- Message{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()

	return sub, nil
}

// Messages returns the inbound message stream.
//
// The channel is closed when Close() is called or the connection is lost
// for good. Receiving from it is the subscription's only suspension point.
func (sub *Subscription) Messages() <-chan Message {
	return sub.msgs
}

// Close unsubscribes and releases the dedicated connection.
func (sub *Subscription) Close() error {
	if err := sub.ps.Close(); err != nil {
		return fmt.Errorf("closing subscription: %w", err)
	}
	return nil
}

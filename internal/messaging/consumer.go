package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Handler processes one decoded event. A returned error nacks the message.
type Handler[T any] func(ctx context.Context, event *T) error

// Consumer feeds the messages of one topic to a typed Handler, one at a time.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	logger     *zap.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
) *Consumer[T] {
	return &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger.With(zap.String("topic", topic)),
	}
}

func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and processes messages in the background until Shutdown.
func (c *Consumer[T]) Start(ctx context.Context) error {
	if c.done != nil {
		return fmt.Errorf("consumer for %s already started", c.topic)
	}

	ctx, cancel := context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		cancel()

		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx, msgs)

	return nil
}

func (c *Consumer[T]) run(ctx context.Context, msgs <-chan *message.Message) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			c.process(ctx, msg)
		}
	}
}

func (c *Consumer[T]) process(ctx context.Context, msg *message.Message) {
	log := c.logger.With(zap.String("message_uuid", msg.UUID))

	event, err := decode[T](msg)
	if err != nil {
		// poison: redelivery cannot fix it
		log.Error("dropping undecodable event", zap.Error(err))
		msg.Ack()

		return
	}

	if err = c.handler(ctx, event); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("handler interrupted by shutdown")
		} else {
			log.Error("failed to handle event", zap.Error(err))
		}

		msg.Nack()

		return
	}

	msg.Ack()
	log.Debug("processed event")
}

func decode[T any](msg *message.Message) (*T, error) {
	if ct := msg.Metadata.Get(MetadataContentType); ct != "" && ct != contentTypeJSON {
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}

	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

// Shutdown stops consuming and waits for the message in flight. It is safe to call
// more than once, and before Start.
func (c *Consumer[T]) Shutdown() error {
	if c.done == nil {
		return nil
	}

	c.stopOnce.Do(c.cancel)
	<-c.done

	return nil
}

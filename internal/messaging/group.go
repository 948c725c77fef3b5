package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Runnable is a background component with a start/stop lifecycle.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup starts runnables in the order they were added and stops them in
// reverse. A sink added before the consumer feeding it is stopped after that consumer,
// so it can flush what it received.
type ConsumerGroup struct {
	members []Runnable
	closer  io.Closer
	logger  *zap.Logger
}

// NewConsumerGroup creates an empty group. closer, normally the subscriber, is closed
// once every member has stopped. It may be nil.
func NewConsumerGroup(closer io.Closer, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{closer: closer, logger: logger}
}

func (g *ConsumerGroup) Add(members ...Runnable) {
	g.members = append(g.members, members...)
}

// Start starts every member. If one fails, those already running are stopped.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, m := range g.members {
		if err := m.Start(ctx); err != nil {
			_ = stopAll(g.members[:i])

			return fmt.Errorf("start group member %d: %w", i, err)
		}
	}

	g.logger.Info("consumer group started", zap.Int("members", len(g.members)))

	return nil
}

// Shutdown stops every member, then the closer. All failures are joined.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("stopping consumer group")

	err := stopAll(g.members)

	if g.closer != nil {
		if cerr := g.closer.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close subscriber: %w", cerr))
		}
	}

	if err != nil {
		g.logger.Warn("consumer group stopped with errors", zap.Error(err))
	}

	return err
}

func stopAll(members []Runnable) error {
	var errs []error

	for i := len(members) - 1; i >= 0; i-- {
		if err := members[i].Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

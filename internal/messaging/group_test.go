package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/serroba/shortlink/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingRunnable appends "start:name" and "stop:name" to a shared journal.
type recordingRunnable struct {
	name     string
	journal  *[]string
	startErr error
	stopErr  error
}

func (r *recordingRunnable) Start(_ context.Context) error {
	if r.startErr != nil {
		return r.startErr
	}

	*r.journal = append(*r.journal, "start:"+r.name)

	return nil
}

func (r *recordingRunnable) Shutdown() error {
	*r.journal = append(*r.journal, "stop:"+r.name)

	return r.stopErr
}

func TestConsumerGroup(t *testing.T) {
	t.Run("starts in order and stops in reverse before closing the subscriber", func(t *testing.T) {
		var journal []string

		sub := newStubSubscriber()
		group := messaging.NewConsumerGroup(sub, zap.NewNop())
		group.Add(&recordingRunnable{name: "aggregator", journal: &journal})
		group.Add(&recordingRunnable{name: "consumer", journal: &journal})

		require.NoError(t, group.Start(context.Background()))
		assert.False(t, sub.isClosed())

		require.NoError(t, group.Shutdown())

		assert.Equal(t, []string{
			"start:aggregator", "start:consumer",
			"stop:consumer", "stop:aggregator",
		}, journal)
		assert.True(t, sub.isClosed())
	})

	t.Run("failed start stops only what already started", func(t *testing.T) {
		var journal []string

		group := messaging.NewConsumerGroup(newStubSubscriber(), zap.NewNop())
		group.Add(
			&recordingRunnable{name: "aggregator", journal: &journal},
			&recordingRunnable{name: "consumer", journal: &journal, startErr: errors.New("subscribe failed")},
		)

		err := group.Start(context.Background())

		require.ErrorContains(t, err, "subscribe failed")
		assert.Equal(t, []string{"start:aggregator", "stop:aggregator"}, journal)
	})

	t.Run("shutdown reports the first failure but stops everything", func(t *testing.T) {
		var journal []string

		group := messaging.NewConsumerGroup(newStubSubscriber(), zap.NewNop())
		group.Add(
			&recordingRunnable{name: "aggregator", journal: &journal, stopErr: errors.New("flush failed")},
			&recordingRunnable{name: "consumer", journal: &journal, stopErr: errors.New("drain failed")},
		)
		require.NoError(t, group.Start(context.Background()))

		err := group.Shutdown()

		require.ErrorContains(t, err, "drain failed")
		assert.Contains(t, journal, "stop:aggregator")
	})

	t.Run("nil closer is allowed", func(t *testing.T) {
		group := messaging.NewConsumerGroup(nil, zap.NewNop())

		require.NoError(t, group.Start(context.Background()))
		assert.NoError(t, group.Shutdown())
	})
}

package analytics

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlink/internal/messaging"
	"go.uber.org/zap"
)

// NewVisitConsumer feeds visit events from the queue into the aggregator. A message
// is acked as soon as the aggregator has buffered it.
func NewVisitConsumer(
	subscriber message.Subscriber,
	aggregator *Aggregator,
	logger *zap.Logger,
) *messaging.Consumer[VisitEvent] {
	return messaging.NewConsumer(subscriber, TopicURLVisited, aggregator.Add, logger)
}

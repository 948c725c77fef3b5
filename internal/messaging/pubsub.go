package messaging

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Queue backends.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// NewMemoryPubSub creates an in-process pub/sub. Messages published while nobody
// subscribes are dropped, and delivery stops when the process exits.
func NewMemoryPubSub(buffer int64, logger *zap.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: buffer,
	}, NewZapLogger(logger))
}

// NewRedisStreamPublisher appends messages to a Redis stream per topic.
// maxLens caps the listed streams approximately; other streams keep everything.
func NewRedisStreamPublisher(
	client redis.UniversalClient,
	maxLens map[string]int64,
	logger *zap.Logger,
) (message.Publisher, error) {
	return redisstream.NewPublisher(redisstream.PublisherConfig{
		Client:     client,
		Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		Maxlens:    maxLens,
	}, NewZapLogger(logger))
}

// NewRedisStreamSubscriber reads topics as a member of a Redis consumer group, so
// offsets survive restarts and unacked messages are redelivered.
func NewRedisStreamSubscriber(
	client redis.UniversalClient,
	consumerGroup string,
	consumer string,
	logger *zap.Logger,
) (message.Subscriber, error) {
	return redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
		ConsumerGroup: consumerGroup,
		Consumer:      consumer,
	}, NewZapLogger(logger))
}

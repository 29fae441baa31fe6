// Package transcript mirrors appended conversation entries onto a Watermill
// topic, either in-process (gochannel) or over Redis Streams so other tools can
// follow a conversation.
package transcript

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	rstream "github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/go-go-golems/askchat/pkg/chatlog"
)

const (
	BackendNone      = "none"
	BackendGoChannel = "gochannel"
	BackendRedis     = "redis"

	DefaultTopic = "askchat.transcript"
)

type Settings struct {
	Backend   string `glazed:"transcript-backend"`
	RedisAddr string `glazed:"transcript-redis-addr"`
	Topic     string `glazed:"transcript-topic"`
}

// BuildPublisher returns the publisher for s, or nil when mirroring is off.
func BuildPublisher(s Settings, logger watermill.LoggerAdapter) (message.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(s.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendGoChannel:
		return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger), nil
	case BackendRedis:
		if strings.TrimSpace(s.RedisAddr) == "" {
			return nil, errors.New("transcript: redis addr is empty")
		}
		client := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		pub, err := rstream.NewPublisher(rstream.PublisherConfig{
			Client:     client,
			Marshaller: rstream.DefaultMarshallerUnmarshaller{},
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "transcript: redis publisher")
		}
		return pub, nil
	default:
		return nil, errors.Errorf("transcript: unknown backend %q", s.Backend)
	}
}

// Record is the payload published for each entry.
type Record struct {
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`
}

type Mirror struct {
	pub   message.Publisher
	topic string
}

func NewMirror(pub message.Publisher, topic string) *Mirror {
	if strings.TrimSpace(topic) == "" {
		topic = DefaultTopic
	}
	return &Mirror{pub: pub, topic: topic}
}

func (m *Mirror) Topic() string { return m.topic }

func (m *Mirror) Publish(ctx context.Context, userID string, e chatlog.Entry) error {
	if m == nil || m.pub == nil {
		return nil
	}
	payload, err := json.Marshal(Record{UserID: userID, Text: e.Text, IsUser: e.FromUser, Timestamp: e.CreatedAt})
	if err != nil {
		return errors.Wrap(err, "transcript: encode record")
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("user_id", userID)
	msg.SetContext(ctx)
	if err := m.pub.Publish(m.topic, msg); err != nil {
		return errors.Wrap(err, "transcript: publish")
	}
	return nil
}

func (m *Mirror) Close() error {
	if m == nil || m.pub == nil {
		return nil
	}
	return m.pub.Close()
}

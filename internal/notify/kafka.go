package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each event to one topic, keyed by entity.
type KafkaSink struct {
	Topic  string
	Writer MessageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		Topic: topic,
		Writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (k *KafkaSink) Name() string { return "kafka:" + k.Topic }

func (k *KafkaSink) Deliver(ctx context.Context, evt Envelope) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	key := evt.EntityKind
	if evt.EntityID != "" {
		key += ":" + evt.EntityID
	}
	ts, err := time.Parse(time.RFC3339, evt.TS)
	if err != nil {
		ts = time.Now()
	}
	return k.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  ts,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
			{Key: "actor_id", Value: []byte(strings.TrimSpace(evt.ActorID))},
		},
	})
}

func (k *KafkaSink) Close() error {
	if k.Writer == nil {
		return nil
	}
	return k.Writer.Close()
}

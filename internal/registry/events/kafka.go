package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"nameledger/pkg/platform/circuit"
)

// Producer is the subset of *kgo.Client used by KafkaSink.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// ErrSinkUnavailable is returned while the sink's breaker is open.
var ErrSinkUnavailable = errors.New("kafka sink unavailable")

// KafkaSink writes notifications as JSON records keyed by record id, so all
// notifications for one record land on the same partition in order.
type KafkaSink struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{
		producer: producer,
		topic:    topic,
		breaker:  circuit.New("kafka"),
	}
}

func (k *KafkaSink) Name() string {
	return "kafka"
}

func (k *KafkaSink) Write(ctx context.Context, e Event) error {
	if !k.breaker.Allow() {
		return ErrSinkUnavailable
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(e.RecordID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.ID)},
		},
	}
	if err := k.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		k.breaker.RecordFailure()
		return fmt.Errorf("produce notification: %w", err)
	}
	k.breaker.RecordSuccess()
	return nil
}

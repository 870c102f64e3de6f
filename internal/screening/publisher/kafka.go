// Package publisher emits completed-screening events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"benefind/internal/screening/models"
)

const contentTypeJSON = "application/json"

// Producer is the part of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes one JSON record per completed screening. Records are
// keyed by owner so one owner's screenings stay in order on a partition.
type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishCompleted(ctx context.Context, event models.CompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode completed event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Owner.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "content-type", Value: []byte(contentTypeJSON)},
			{Key: "catalog-version", Value: []byte(event.CatalogVersion)},
		},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("publish screening %s: %w", event.ScreeningID, err)
	}
	return nil
}

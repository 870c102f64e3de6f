package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	emodels "benefind/internal/eligibility/models"
	"benefind/internal/screening/models"
	id "benefind/pkg/domain"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		p.records = append(p.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func event() models.CompletedEvent {
	return models.CompletedEvent{
		ScreeningID:    id.NewScreeningID().String(),
		Owner:          models.SessionOwner(id.SessionID(uuid.New())),
		CatalogVersion: "2024.3",
		Locale:         "en",
		CompletedAt:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Programs:       []models.ProgramTier{{ProgramID: "snap", Tier: emodels.TierLikely}},
		Interactions:   []emodels.BenefitInteraction{},
	}
}

func TestPublishCompleted(t *testing.T) {
	producer := &recordingProducer{}
	pub := NewKafka(producer, "screenings.completed")
	ev := event()

	require.NoError(t, pub.PublishCompleted(context.Background(), ev))
	require.Len(t, producer.records, 1)

	rec := producer.records[0]
	assert.Equal(t, "screenings.completed", rec.Topic)
	assert.Equal(t, ev.Owner.String(), string(rec.Key))
	assert.Contains(t, rec.Headers, kgo.RecordHeader{Key: "catalog-version", Value: []byte("2024.3")})

	var decoded models.CompletedEvent
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestPublishCompletedFailure(t *testing.T) {
	producer := &recordingProducer{err: errors.New("not enough replicas")}
	pub := NewKafka(producer, "screenings.completed")

	err := pub.PublishCompleted(context.Background(), event())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not enough replicas")
}

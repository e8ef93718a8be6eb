package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/core/domain"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	routingKey string
	msgs       []amqp.Publishing
	err        error
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, msg amqp.Publishing) error {
	f.routingKey = routingKey
	f.msgs = append(f.msgs, msg)
	return f.err
}

func testPage(t *testing.T) *domain.SearchResponse {
	var page domain.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(`{"total":41,"totalPages":3,"actualPage":2,"itemsPerPage":20,
		"elementList":[{"propertyCode":"7","price":99000,"extra":[1,2]}]}`), &page))
	return &page
}

func TestPublishPage(t *testing.T) {
	producer := &fakePublisher{}
	adapter, err := NewRabbitMQPagePublisherAdapter(producer, "idealista.page.fetched")
	require.NoError(t, err)
	adapter.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

	runID := uuid.New()
	req := domain.SearchRequest{Country: domain.CountrySpain, Operation: domain.OperationSale, PropertyType: domain.PropertyTypeHomes}
	ctx := contextkeys.ContextWithTraceID(context.Background(), "trace-1")

	require.NoError(t, adapter.PublishPage(ctx, runID, req, testPage(t)))
	require.Len(t, producer.msgs, 1)

	msg := producer.msgs[0]
	assert.Equal(t, "idealista.page.fetched", producer.routingKey)
	assert.Equal(t, "PropertyPageFetchedEvent", msg.Headers["event-type"])
	assert.Equal(t, "1.0.0", msg.Headers["event-version"])
	assert.Equal(t, "trace-1", msg.Headers["x-trace-id"])

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, runID.String(), body["run_id"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(1), body["properties_count"])
	props := body["properties"].([]any)
	assert.Equal(t, []any{float64(1), float64(2)}, props[0].(map[string]any)["extra"])
}

func TestPublishPage_ProducerError(t *testing.T) {
	producer := &fakePublisher{err: errors.New("channel closed")}
	adapter, err := NewRabbitMQPagePublisherAdapter(producer, "idealista.page.fetched")
	require.NoError(t, err)

	req := domain.SearchRequest{Country: domain.CountryItaly, Operation: domain.OperationRent, PropertyType: domain.PropertyTypeGarages}
	assert.EqualError(t, adapter.PublishPage(context.Background(), uuid.New(), req, testPage(t)), "channel closed")
}

func TestNewRabbitMQPagePublisherAdapter_Validation(t *testing.T) {
	_, err := NewRabbitMQPagePublisherAdapter(nil, "key")
	assert.Error(t, err)
	_, err = NewRabbitMQPagePublisherAdapter(&fakePublisher{}, "")
	assert.Error(t, err)
}

package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"idealista-parser-service/internal/constants"
	"idealista-parser-service/internal/contextkeys"
	"idealista-parser-service/internal/contracts"
	"idealista-parser-service/internal/core/domain"
	"idealista-parser-service/internal/core/port"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 10 * time.Second

// publisher - часть *rabbitmq.Publisher из pkg, которой пользуется адаптер
type publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// RabbitMQPagePublisherAdapter публикует каждую полученную страницу выдачи
type RabbitMQPagePublisherAdapter struct {
	producer   publisher
	routingKey string
	now        func() time.Time
}

func NewRabbitMQPagePublisherAdapter(producer publisher, routingKey string) (*RabbitMQPagePublisherAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("routingKey cannot be empty")
	}
	return &RabbitMQPagePublisherAdapter{producer: producer, routingKey: routingKey, now: time.Now}, nil
}

func (a *RabbitMQPagePublisherAdapter) PublishPage(ctx context.Context, runID uuid.UUID, request domain.SearchRequest, page *domain.SearchResponse) error {
	adapterLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component":   "RabbitMQPagePublisherAdapter",
		"routing_key": a.routingKey,
		"run_id":      runID.String(),
		"page":        page.ActualPage,
	})

	body, err := json.Marshal(toPageFetchedEventDTO(runID, request, page, a.now()))
	if err != nil {
		adapterLogger.Error("Failed to marshal page event", err, nil)
		return fmt.Errorf("failed to marshal page %d event: %w", page.ActualPage, err)
	}

	if err := contracts.ValidateEvent(constants.EventTypePageFetched, constants.EventVersionPageFetched, body); err != nil {
		adapterLogger.Error("Page event does not match its schema", err, nil)
		return fmt.Errorf("page %d event is invalid: %w", page.ActualPage, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    a.now(),
		Headers: amqp.Table{
			"event-type":    constants.EventTypePageFetched,
			"event-version": constants.EventVersionPageFetched,
		},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := a.producer.Publish(publishCtx, a.routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish page event", err, nil)
		return err
	}

	adapterLogger.Debug("Page event published", port.Fields{"properties": len(page.ElementList)})
	return nil
}

package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PublisherConfig - куда и как публиковать
type PublisherConfig struct {
	ExchangeName    string
	ExchangeType    string // direct, fanout, topic, headers
	DurableExchange bool
	// DeclareExchange - объявить обменник при создании издателя
	DeclareExchange bool

	Logger Logger
}

func (c PublisherConfig) validate() error {
	if c.DeclareExchange && (c.ExchangeName == "" || c.ExchangeType == "") {
		return fmt.Errorf("rabbitmq publisher: exchange name and type are required to declare an exchange")
	}
	return nil
}

// Publisher публикует сообщения в один обменник через собственный канал.
// amqp.Channel не потокобезопасен для публикации, поэтому Publish сериализован.
type Publisher struct {
	cfg     PublisherConfig
	manager *ConnectionManager
	channel *amqp.Channel
	mu      sync.Mutex
	logger  Logger
}

func NewPublisher(cfg PublisherConfig, manager *ConnectionManager) (*Publisher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NewNoopLogger()
	}

	p := &Publisher{cfg: cfg, manager: manager, logger: logger}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) openChannel() error {
	_, ch, err := p.manager.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq publisher: %w", err)
	}

	if p.cfg.DeclareExchange {
		p.logger.Debug("Declaring exchange", "name", p.cfg.ExchangeName, "type", p.cfg.ExchangeType)
		err = ch.ExchangeDeclare(
			p.cfg.ExchangeName,
			p.cfg.ExchangeType,
			p.cfg.DurableExchange,
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			_ = ch.Close()
			return fmt.Errorf("rabbitmq publisher: failed to declare exchange '%s': %w", p.cfg.ExchangeName, err)
		}
	}

	p.channel = ch
	return nil
}

// Publish отправляет сообщение; закрытый канал открывается заново один раз
func (p *Publisher) Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		p.logger.Warn("Channel is closed, reopening", "exchange", p.cfg.ExchangeName)
		if err := p.openChannel(); err != nil {
			return err
		}
	}

	err := p.channel.PublishWithContext(ctx, p.cfg.ExchangeName, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("rabbitmq publisher: failed to publish message: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return nil
	}
	err := p.channel.Close()
	p.channel = nil
	if err != nil {
		p.logger.Error(err, "Error closing channel")
		return err
	}
	p.logger.Info("Publisher closed")
	return nil
}

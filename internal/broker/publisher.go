// Package broker publishes saved-search match events to RabbitMQ.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cloo-solutions/plotsearch/internal/contracts"
	"github.com/cloo-solutions/plotsearch/internal/logging"
)

const (
	DefaultExchange       = "saved_search.events"
	defaultPublishTimeout = 10 * time.Second
)

var ErrClosed = errors.New("broker: publisher closed")

type Config struct {
	URL            string
	Exchange       string
	PublishTimeout time.Duration
}

// Publisher owns one connection and channel, and redials lazily on the next
// publish after the broker drops them.
type Publisher struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewPublisher connects and declares the durable topic exchange.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("broker: url is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	p := &Publisher{cfg: cfg, logger: logging.OrDefault(logger).With("component", "broker", "exchange", cfg.Exchange)}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connectLocked() error {
	conn, err := amqp.Dial(p.cfg.URL)
	if err != nil {
		return fmt.Errorf("broker: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("broker: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("broker: declare exchange %q: %w", p.cfg.Exchange, err)
	}
	p.conn, p.ch = conn, ch
	p.logger.Debug("broker connected")
	return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		if p.conn != nil && !p.conn.IsClosed() {
			_ = p.conn.Close()
		}
		p.logger.Warn("broker connection lost, reconnecting")
		if err := p.connectLocked(); err != nil {
			return nil, err
		}
	}
	return p.ch, nil
}

// PublishMatch sends a persistent match event under
// contracts.MatchEvaluatedRoutingKey.
func (p *Publisher) PublishMatch(ctx context.Context, event contracts.MatchEvaluated) error {
	body, err := contracts.EncodeMatchEvaluated(event)
	if err != nil {
		return err
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.EvaluatedAt.UTC(),
		MessageId:    event.SavedSearchID + ":" + event.EvaluatedAt.UTC().Format(time.RFC3339Nano),
		Type:         contracts.MatchEvaluatedRoutingKey,
		Headers:      amqp.Table{"schema_version": int32(contracts.MatchEvaluatedVersion)},
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, p.cfg.Exchange, contracts.MatchEvaluatedRoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("broker: publish match event for %s: %w", event.SavedSearchID, err)
	}
	return nil
}

// Close closes the channel and connection. Later publishes fail with
// ErrClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.ch != nil && !p.ch.IsClosed() {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// LogPublisher logs match events instead of sending them. It is used when
// no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logging.OrDefault(logger)}
}

func (p *LogPublisher) PublishMatch(ctx context.Context, event contracts.MatchEvaluated) error {
	if _, err := contracts.EncodeMatchEvaluated(event); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "saved search matches",
		"saved_search_id", event.SavedSearchID,
		"user_id", event.UserID,
		"count", event.Count,
		"exact", event.Exact,
		"evaluated_at", event.EvaluatedAt.UTC())
	return nil
}

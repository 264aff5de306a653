// Package natsresults publishes experiment results to NATS as they are produced.
package natsresults

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/a-h/localcluster"
	"github.com/nats-io/nats.go"
)

// MsgPublisher defines the interface for publishing messages to NATS.
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// Config configures the NATS publisher.
type Config struct {
	// SubjectPrefix is the subject prefix for published messages, defaults to "localcluster".
	SubjectPrefix string
	// Logger is used for structured logging.
	Logger *slog.Logger
	// MaxRetries is the number of retries for failed publishes.
	MaxRetries int
	// RetryDelay is multiplied by the attempt number to give the wait between retries.
	RetryDelay time.Duration
	// Headers are added to NATS messages.
	Headers nats.Header
}

const (
	KindTrial     = "trial"
	KindAggregate = "aggregate"
)

// Publisher is a localcluster.Sink that publishes each result as JSON.
type Publisher struct {
	config    Config
	publisher MsgPublisher
	logger    *slog.Logger
}

var _ localcluster.Sink = (*Publisher)(nil)

// New creates a publisher with an existing NATS connection.
func New(nc *nats.Conn, config Config) (*Publisher, error) {
	if nc == nil {
		return nil, fmt.Errorf("NATS connection cannot be nil")
	}
	return NewWithPublisher(nc, config)
}

// NewWithPublisher creates a publisher that sends messages through publisher.
func NewWithPublisher(publisher MsgPublisher, config Config) (*Publisher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher cannot be nil")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.SubjectPrefix == "" {
		config.SubjectPrefix = "localcluster"
	}
	return &Publisher{
		config:    config,
		publisher: publisher,
		logger:    config.Logger,
	}, nil
}

func (p *Publisher) PutTrial(ctx context.Context, t localcluster.Trial) error {
	return p.publish(ctx, KindTrial, t.RunID, t.K, t.Seq, t)
}

// PutAggregate publishes an aggregate. There is one aggregate per k, so k is
// used as its sequence number.
func (p *Publisher) PutAggregate(ctx context.Context, a localcluster.Aggregate) error {
	return p.publish(ctx, KindAggregate, a.RunID, a.K, a.K, a)
}

// Subject returns the subject that results of the given kind are published to.
func (p *Publisher) Subject(kind string, k int) string {
	return fmt.Sprintf("%s.%s.k%d", p.config.SubjectPrefix, kind, k)
}

func (p *Publisher) publish(ctx context.Context, kind, runID string, k, seq int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("natsresults: failed to marshal %s: %w", kind, err)
	}
	msg := &nats.Msg{
		Subject: p.Subject(kind, k),
		Data:    data,
		Header:  make(nats.Header),
	}
	maps.Copy(msg.Header, p.config.Headers)
	msg.Header.Set("run-id", runID)
	msg.Header.Set("k", strconv.Itoa(k))
	msg.Header.Set("kind", kind)
	// Used by JetStream to drop duplicates on redelivery.
	msg.Header.Set(nats.MsgIdHdr, fmt.Sprintf("%s-%s-%d", runID, kind, seq))

	var lastErr error
	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * p.config.RetryDelay):
			}
		}
		err := p.publisher.PublishMsg(msg)
		if err == nil {
			p.logger.Debug("Published result", slog.String("subject", msg.Subject), slog.String("kind", kind), slog.Int("k", k))
			return nil
		}
		lastErr = err
		p.logger.Warn("Failed to publish, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("maxRetries", p.config.MaxRetries),
			slog.String("error", err.Error()))
	}
	return fmt.Errorf("natsresults: failed to publish after %d attempts: %w", p.config.MaxRetries+1, lastErr)
}

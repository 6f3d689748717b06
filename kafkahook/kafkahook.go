// Package kafkahook streams ledger events to a Kafka topic.
//
// Each event is one JSON Envelope keyed by token ID, so a consumer sees the
// transfers of a token in sequence order within its partition. A write that
// outlives the plugin timeout can be overtaken by the next one.
package kafkahook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// Event types carried in Envelope.Type.
const (
	TypeTokenDeployed     = "token.deployed"
	TypeTransferCompleted = "transfer.completed"
	TypeTransferMinted    = "transfer.minted"
	TypeTransferRejected  = "transfer.rejected"
)

// DefaultTopic is used when NewWriter is given an empty topic.
const DefaultTopic = "tally.events"

var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnShutdown         = (*Extension)(nil)
	_ plugin.OnTokenDeployed    = (*Extension)(nil)
	_ plugin.OnTransfer         = (*Extension)(nil)
	_ plugin.OnTransferRejected = (*Extension)(nil)
)

// MessageWriter is the subset of *kafka.Writer the hook needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the message value.
type Envelope struct {
	Type string          `json:"type"`
	TS   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// NewWriter returns a kafka.Writer producing to topic on brokers.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Extension publishes ledger events through a MessageWriter.
type Extension struct {
	writer MessageWriter
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extension) { e.logger = l }
}

// New creates an Extension writing through w.
func New(w MessageWriter, opts ...Option) *Extension {
	e := &Extension{
		writer: w,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "kafka-hook" }

// OnShutdown implements plugin.OnShutdown and closes the writer.
func (e *Extension) OnShutdown(_ context.Context) error {
	return e.writer.Close()
}

// OnTokenDeployed implements plugin.OnTokenDeployed.
func (e *Extension) OnTokenDeployed(ctx context.Context, t *token.Token) error {
	return e.publish(ctx, TypeTokenDeployed, t.ID.String(), t)
}

// OnTransfer implements plugin.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, t *transfer.Transfer) error {
	typ := TypeTransferCompleted
	if t.Kind == transfer.KindMint {
		typ = TypeTransferMinted
	}
	return e.publish(ctx, typ, t.TokenID.String(), t)
}

// OnTransferRejected implements plugin.OnTransferRejected.
func (e *Extension) OnTransferRejected(ctx context.Context, r *transfer.Rejection) error {
	return e.publish(ctx, TypeTransferRejected, r.TokenID.String(), r)
}

func (e *Extension) publish(ctx context.Context, typ, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kafkahook: marshal %s: %w", typ, err)
	}
	value, err := json.Marshal(Envelope{Type: typ, TS: e.now(), Data: data})
	if err != nil {
		return fmt.Errorf("kafkahook: marshal envelope: %w", err)
	}

	if err := e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	}); err != nil {
		e.logger.Warn("kafkahook: publish failed", "type", typ, "key", key, "error", err)
		return fmt.Errorf("kafkahook: publish %s: %w", typ, err)
	}
	return nil
}

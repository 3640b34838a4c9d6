package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ReceiptStream keeps submitted order receipts in a JetStream stream so a
// restarted instance can rebuild its per-table history.
type ReceiptStream struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	stream  jetstream.Stream
	subject string
}

// ReceiptStreamConfig configures a ReceiptStream.
type ReceiptStreamConfig struct {
	URL        string
	StreamName string        // e.g. "TABLESIDE_RECEIPTS"
	Subject    string        // e.g. "orders.submitted"
	MaxAge     time.Duration // retention window
	MaxMsgs    int64         // 0 = unlimited
}

// NewReceiptStream connects and ensures the stream exists.
func NewReceiptStream(ctx context.Context, cfg ReceiptStreamConfig) (*ReceiptStream, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("tableside-receipts"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	streamConfig := jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: []string{cfg.Subject},
		MaxAge:   cfg.MaxAge,
	}
	if cfg.MaxMsgs > 0 {
		streamConfig.MaxMsgs = cfg.MaxMsgs
	}

	stream, err := js.CreateOrUpdateStream(ctx, streamConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	return &ReceiptStream{
		conn:    conn,
		js:      js,
		stream:  stream,
		subject: cfg.Subject,
	}, nil
}

// Publish implements events.Publisher. The stream only accepts its own subject.
func (s *ReceiptStream) Publish(ctx context.Context, topic string, msg []byte) error {
	if topic != s.subject {
		return nil
	}
	if _, err := s.js.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish receipt: %w", err)
	}
	return nil
}

// Replay reads up to limit stored receipts from the start of the stream with
// an ordered consumer, leaving nothing acknowledged behind.
func (s *ReceiptStream) Replay(ctx context.Context, limit int) ([]events.StreamMessage, error) {
	if limit <= 0 {
		limit = 500
	}

	consumer, err := s.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{s.subject},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create replay consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch receipts: %w", err)
	}

	var messages []events.StreamMessage
	for msg := range batch.Messages() {
		messages = append(messages, events.StreamMessage{Data: msg.Data()})
	}

	return messages, nil
}

func (s *ReceiptStream) Close() error {
	s.conn.Close()
	return nil
}

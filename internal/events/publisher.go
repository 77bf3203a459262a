package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/2beens/stravainsights/internal/telemetry/tracing"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

const (
	TypeActivitySynced  = "activity.synced"
	TypeInsightCreated  = "insight.generated"
	TypeUserDeleted     = "user.deleted"
	defaultWriteTimeout = 10 * time.Second
)

// Event is the envelope of everything published to the activity events topic
type Event struct {
	Type       string          `json:"type"`
	UserID     int64           `json:"user_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

//go:generate mockgen -source=$GOFILE -destination=publisher_mocks_test.go -package=events

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		WriteTimeout: defaultWriteTimeout,
		Async:        false,
	}, topic)
}

func newKafkaPublisher(writer messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
	}
}

// Publish writes the events keyed by user id, so a single user's events stay ordered
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) (err error) {
	if len(events) == 0 {
		return nil
	}

	ctx, span := tracing.GlobalTracer.Start(ctx, "events.kafka.publish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		if e.OccurredAt.IsZero() {
			e.OccurredAt = time.Now().UTC()
		}
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(e.UserID, 10)),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(e.Type)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), p.topic, err)
	}
	log.Tracef("published %d events to %s", len(msgs), p.topic)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, events ...Event) error {
	log.Tracef("noop publisher: dropping %d events", len(events))
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}

func NewPublisher(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		log.Warnln("no kafka brokers configured, activity events will not be published")
		return NoopPublisher{}
	}
	return NewKafkaPublisher(brokers, topic)
}

func NewEvent(eventType string, userID int64, payload any) (Event, error) {
	e := Event{
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		e.Payload = raw
	}
	return e, nil
}

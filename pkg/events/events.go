package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"navette/pkg/model"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingConfirmed = "booking.confirmed"
	TypeBookingRejected  = "booking.rejected"
	TypeDriverAssigned   = "booking.driver_assigned"
	TypeBookingCompleted = "booking.completed"
	TypeBookingCancelled = "booking.cancelled"
)

// BookingEvent is the lifecycle event payload. Client details are
// always the masked projection; raw contact data never leaves the
// service boundary through the event stream.
type BookingEvent struct {
	Type             string           `json:"type"`
	BookingID        string           `json:"booking_id"`
	BookingReference string           `json:"booking_reference"`
	Status           string           `json:"status"`
	DriverID         string           `json:"driver_id,omitempty"`
	BookingGroupID   string           `json:"booking_group_id,omitempty"`
	ServiceType      string           `json:"service_type"`
	Client           model.ClientSafe `json:"client"`
	OccurredAt       time.Time        `json:"occurred_at"`
}

// Publisher emits booking lifecycle events. All implementations are
// best-effort from the caller's point of view.
type Publisher interface {
	PublishBooking(ctx context.Context, eventType string, b *model.Booking) error
	Close() error
}

// KafkaPublisher writes events to a single topic, keyed by booking id
// so per-booking ordering holds.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) PublishBooking(ctx context.Context, eventType string, b *model.Booking) error {
	event := BookingEvent{
		Type:             eventType,
		BookingID:        b.ID,
		BookingReference: b.BookingReference,
		Status:           b.Status,
		DriverID:         b.DriverID,
		BookingGroupID:   b.BookingGroupID,
		ServiceType:      b.ServiceType,
		Client:           b.SafeClient(),
		OccurredAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling booking event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(b.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s: %w", eventType, err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishBooking(context.Context, string, *model.Booking) error { return nil }

func (NoopPublisher) Close() error { return nil }

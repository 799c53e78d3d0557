// Package reminder publishes booking lifecycle events for the reminder
// service to schedule notifications from.
package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

const (
	TopicBooked      = "appointment.booked"
	TopicCanceled    = "appointment.canceled"
	TopicRescheduled = "appointment.rescheduled"

	publishTimeout = 5 * time.Second
)

// Event is the message value on every topic.
type Event struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	TenantID      string    `json:"tenant_id"`
	AppointmentID uint      `json:"appointment_id"`
	EmployeeID    uint      `json:"employee_id"`
	ServiceName   string    `json:"service_name,omitempty"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	CancelReason  string    `json:"cancel_reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Relay implements the booking Hooks. A relay without a writer drops events.
type Relay struct {
	writer MessageWriter
	now    func() time.Time
	log    logrus.FieldLogger
}

// NewRelay writes to brokers; with none configured it is a no-op.
func NewRelay(brokers []string, log logrus.FieldLogger) *Relay {
	if len(brokers) == 0 {
		return NewRelayWithWriter(nil, log)
	}
	return NewRelayWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}, log)
}

func NewRelayWithWriter(w MessageWriter, log logrus.FieldLogger) *Relay {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "reminder")
	if w == nil {
		log.Warn("reminder relay disabled (no kafka brokers configured)")
	}
	return &Relay{writer: w, now: time.Now, log: log}
}

func (r *Relay) Enabled() bool { return r.writer != nil }

func (r *Relay) BookingCreated(ctx context.Context, ap *models.Appointment) {
	r.publish(ctx, TopicBooked, ap)
}

func (r *Relay) BookingCanceled(ctx context.Context, ap *models.Appointment) {
	r.publish(ctx, TopicCanceled, ap)
}

func (r *Relay) BookingRescheduled(ctx context.Context, ap *models.Appointment) {
	r.publish(ctx, TopicRescheduled, ap)
}

func (r *Relay) publish(ctx context.Context, topic string, ap *models.Appointment) {
	if r.writer == nil {
		return
	}

	ev := Event{
		EventID:       uuid.NewString(),
		EventType:     topic,
		TenantID:      ap.TenantID,
		AppointmentID: ap.ID,
		EmployeeID:    ap.EmployeeID,
		ServiceName:   ap.Service.Name,
		CustomerName:  ap.CustomerName,
		CustomerPhone: ap.CustomerPhone,
		CustomerEmail: ap.CustomerEmail,
		StartTime:     ap.StartTime.UTC(),
		EndTime:       ap.EndTime.UTC(),
		Status:        ap.Status,
		CancelReason:  ap.CancelReason,
		OccurredAt:    r.now().UTC(),
	}

	log := r.log.WithFields(logrus.Fields{
		"topic":          topic,
		"tenant_id":      ap.TenantID,
		"appointment_id": ap.ID,
	})

	value, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("failed to encode reminder event")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = r.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(Key(ap.TenantID, ap.ID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID)},
			{Key: "event_type", Value: []byte(topic)},
		},
	})
	if err != nil {
		log.WithError(err).Warn("failed to publish reminder event")
		return
	}
	log.Debug("reminder event published")
}

// Key partitions events so one appointment's events stay ordered.
func Key(tenantID string, appointmentID uint) string {
	return fmt.Sprintf("%s:%d", tenantID, appointmentID)
}

func (r *Relay) Close() error {
	if r.writer == nil {
		return nil
	}
	return r.writer.Close()
}

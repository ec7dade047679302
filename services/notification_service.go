package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/designden/designden-api/config"
	"github.com/designden/designden-api/models"
	"github.com/segmentio/kafka-go"
)

// OrderEvent is the payload published for every order workflow change.
// Consumed by the notification side panel; never read back by the
// lifecycle logic itself.
type OrderEvent struct {
	OrderID     uint               `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	Status      models.OrderStatus `json:"status"`
	Note        string             `json:"note,omitempty"`
	ActorID     uint               `json:"actor_id,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// Notifier publishes order events to the notification side channel.
type Notifier interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

var notifierInstance Notifier

// InitKafkaNotifier initializes the Kafka-backed notifier. When no
// brokers are configured the notifier stays nil and publishing becomes a
// no-op.
func InitKafkaNotifier(cfg *config.Config) Notifier {
	if len(cfg.KafkaBrokers) == 0 {
		log.Println("KAFKA_BROKERS not set, order notifications disabled")
		notifierInstance = nil
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaOrderTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	notifierInstance = &KafkaNotifier{writer: writer}
	return notifierInstance
}

// GetNotifier returns the initialized notifier instance (may be nil)
func GetNotifier() Notifier {
	return notifierInstance
}

// SetNotifier sets the notifier instance (primarily for testing)
func SetNotifier(n Notifier) {
	notifierInstance = n
}

// KafkaNotifier publishes order events to a Kafka topic
type KafkaNotifier struct {
	writer *kafka.Writer
}

// PublishOrderEvent writes one JSON message keyed by order number, so
// events for an order land on one partition in order.
func (n *KafkaNotifier) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderNumber),
		Value: payload,
	})
}

// Close flushes and closes the underlying writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// notifyOrderEvent publishes best-effort: a notification failure is
// logged and never fails or rolls back the state change that caused it.
func notifyOrderEvent(order *models.Order, note string, actorID uint) {
	notifier := GetNotifier()
	if notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := OrderEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Note:        note,
		ActorID:     actorID,
		OccurredAt:  time.Now().UTC(),
	}
	if err := notifier.PublishOrderEvent(ctx, event); err != nil {
		log.Printf("warning: failed to publish order event for %s: %v", order.OrderNumber, err)
	}
}

// MockNotifier records published events for test assertions
type MockNotifier struct {
	mu     sync.Mutex
	events []OrderEvent
	fail   bool
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// SetAsMockForTesting sets this mock as the global notifier instance
func (m *MockNotifier) SetAsMockForTesting() {
	SetNotifier(m)
}

// FailNext makes subsequent publishes return an error
func (m *MockNotifier) FailNext(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// PublishOrderEvent records the event
func (m *MockNotifier) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return context.DeadlineExceeded
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (m *MockNotifier) Events() []OrderEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderEvent, len(m.events))
	copy(out, m.events)
	return out
}

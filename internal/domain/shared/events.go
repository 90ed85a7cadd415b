package shared

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Content events drive cache invalidation; progress
// events are informational.
const (
	// Content events
	EventLessonBlockChanged EventType = "content.lesson_block_changed"
	EventVariantChanged     EventType = "content.variant_changed"

	// Progress events
	EventProgressRecorded EventType = "progress.recorded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event with a fresh correlation ID.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		AggregateId:   aggregateID,
		CorrelationID: uuid.NewString(),
	}
}

// WithCorrelationID overrides the correlation ID, for tracing a request
// through the events it produces.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Content Events
// ═══════════════════════════════════════════════════════════════════════════

// LessonBlockChangedEvent is emitted when a block is added to, removed from,
// or reordered within a lesson.
type LessonBlockChangedEvent struct {
	BaseEvent
	LessonID int64 `json:"lesson_id"`
	TenantID int64 `json:"tenant_id"`
}

// Payload implements Event interface.
func (e LessonBlockChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id": e.LessonID,
		"tenant_id": e.TenantID,
	}
}

// NewLessonBlockChangedEvent creates a new LessonBlockChangedEvent.
func NewLessonBlockChangedEvent(lessonID, tenantID int64) LessonBlockChangedEvent {
	return LessonBlockChangedEvent{
		BaseEvent: NewBaseEvent(EventLessonBlockChanged, fmt.Sprintf("lesson/%d", lessonID)),
		LessonID:  lessonID,
		TenantID:  tenantID,
	}
}

// VariantChangedEvent is emitted when a block variant's content changed.
// TenantID is nil for the default (tenant-agnostic) variant.
type VariantChangedEvent struct {
	BaseEvent
	BlockID  int64  `json:"block_id"`
	TenantID *int64 `json:"tenant_id"`
}

// Payload implements Event interface.
func (e VariantChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"block_id":  e.BlockID,
		"tenant_id": e.TenantID,
	}
}

// IsDefault reports whether the changed variant is the tenant-agnostic default.
func (e VariantChangedEvent) IsDefault() bool {
	return e.TenantID == nil
}

// NewVariantChangedEvent creates a new VariantChangedEvent.
func NewVariantChangedEvent(blockID int64, tenantID *int64) VariantChangedEvent {
	return VariantChangedEvent{
		BaseEvent: NewBaseEvent(EventVariantChanged, fmt.Sprintf("block/%d", blockID)),
		BlockID:   blockID,
		TenantID:  tenantID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// ProgressRecordedEvent is emitted after a progress upsert is applied.
type ProgressRecordedEvent struct {
	BaseEvent
	TenantID     int64  `json:"tenant_id"`
	UserID       int64  `json:"user_id"`
	LessonID     int64  `json:"lesson_id"`
	BlockID      int64  `json:"block_id"`
	StoredStatus string `json:"stored_status"`
}

// Payload implements Event interface.
func (e ProgressRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"tenant_id":     e.TenantID,
		"user_id":       e.UserID,
		"lesson_id":     e.LessonID,
		"block_id":      e.BlockID,
		"stored_status": e.StoredStatus,
	}
}

// NewProgressRecordedEvent creates a new ProgressRecordedEvent.
func NewProgressRecordedEvent(tenantID, userID, lessonID, blockID int64, storedStatus string) ProgressRecordedEvent {
	return ProgressRecordedEvent{
		BaseEvent:    NewBaseEvent(EventProgressRecorded, fmt.Sprintf("user/%d/lesson/%d", userID, lessonID)),
		TenantID:     tenantID,
		UserID:       userID,
		LessonID:     lessonID,
		BlockID:      blockID,
		StoredStatus: storedStatus,
	}
}

// EventHandler is a function that handles an event. Returning an error
// signals the bus to log the failure; it does not stop delivery to other
// handlers.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

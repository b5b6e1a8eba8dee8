package models

import (
	"time"

	"github.com/google/uuid"
)

// IdentityEventType represents the lifecycle moments published for an identity
type IdentityEventType string

const (
	IdentityEventEnter IdentityEventType = "ENTER"
	IdentityEventExit  IdentityEventType = "EXIT"
	IdentityEventReID  IdentityEventType = "REIDENTIFIED"
)

// IdentityEvent is the payload sent to NATS for tracker and gallery activity
type IdentityEvent struct {
	EventID    uuid.UUID         `json:"event_id"`
	RunID      string            `json:"run_id"`
	WorkerID   string            `json:"worker_id"`
	Type       IdentityEventType `json:"type"`
	Stream     string            `json:"stream"`
	StreamIdx  int               `json:"stream_index"`
	TrackID    int               `json:"track_id"`
	GalleryID  *int              `json:"gallery_id,omitempty"`
	Similarity *float32          `json:"similarity,omitempty"`
	Label      string            `json:"label"`
	Box        Box               `json:"box"`
	Timestamp  time.Time         `json:"timestamp"`
}

// NewIdentityEvent stamps a fresh event id and time
func NewIdentityEvent(eventType IdentityEventType, stream string, streamIdx int, obj TrackedObject) IdentityEvent {
	return IdentityEvent{
		EventID:   uuid.New(),
		Type:      eventType,
		Stream:    stream,
		StreamIdx: streamIdx,
		TrackID:   obj.ID,
		Label:     obj.Prediction.Label,
		Box:       obj.Prediction.Box,
		Timestamp: time.Now(),
	}
}

// EventPublisher is implemented by anything that can ship identity events
type EventPublisher interface {
	PublishEvent(event IdentityEvent) error
}

package tracking

import (
	"time"

	"github.com/teslashibe/go-fortuna/pkg/element"
	"github.com/teslashibe/go-fortuna/pkg/tracking/detection"
)

// EntityID uniquely identifies a tracked entity. IDs come from a monotonic
// per-coordinator counter and are never reused.
type EntityID uint64

// State is the classification lifecycle state of a tracked entity.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// TrackedEntity is one physical object with a stable identity across frames.
// Entities are owned exclusively by the Coordinator; they cross its boundary
// only as EntityView copies.
type TrackedEntity struct {
	ID         EntityID
	Box        detection.Box
	Center     detection.Point
	Label      string  // most recent detector hint, "" when unknown
	Confidence float64 // most recent detector confidence

	State     State
	Element   element.Element // set iff State == StateCompleted
	RawOutput string          // classifier text, set on completion
	LastError string          // failure reason, set on StateFailed

	LastSeenGeneration uint64
	DispatchGeneration uint64
	DispatchedAt       time.Time
	CreatedAt          time.Time
}

// view returns a render-ready copy of the entity.
func (e *TrackedEntity) view() EntityView {
	return EntityView{
		ID:                 e.ID,
		Box:                e.Box,
		Center:             e.Center,
		Label:              e.Label,
		Confidence:         e.Confidence,
		State:              e.State,
		Element:            e.Element,
		RawOutput:          e.RawOutput,
		LastError:          e.LastError,
		LastSeenGeneration: e.LastSeenGeneration,
		CreatedAt:          e.CreatedAt,
	}
}

// EntityView is the immutable per-entity snapshot handed to renderers and
// the dashboard. Holding a view never keeps the entity alive.
type EntityView struct {
	ID                 EntityID        `json:"id"`
	Box                detection.Box   `json:"box"`
	Center             detection.Point `json:"center"`
	Label              string          `json:"label,omitempty"`
	Confidence         float64         `json:"confidence"`
	State              State           `json:"state"`
	Element            element.Element `json:"element,omitempty"`
	RawOutput          string          `json:"raw_output,omitempty"`
	LastError          string          `json:"last_error,omitempty"`
	LastSeenGeneration uint64          `json:"last_seen_generation"`
	CreatedAt          time.Time       `json:"created_at"`
}

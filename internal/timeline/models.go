// Package timeline is the per-sample, append-only, strictly ordered event log.
// It is the system of record for audits and the source for subscriber catch-up.
package timeline

import (
	"time"

	id "sampletrack/pkg/domain"
)

// EventType is a closed set; handlers switch on it exhaustively.
type EventType string

const (
	EventSampleCreated     EventType = "sample_created"
	EventStatusChange      EventType = "status_change"
	EventCustodyTransfer   EventType = "custody_transfer"
	EventTelemetryRecorded EventType = "telemetry_recorded"
	EventAlertRaised       EventType = "alert_raised"
	EventAlertAcknowledged EventType = "alert_acknowledged"
	EventAlertResolved     EventType = "alert_resolved"
	EventHoldPlaced        EventType = "hold_placed"
	EventHoldReleased      EventType = "hold_released"
	EventChainBroken       EventType = "chain_broken"
)

// Impact grades how much an event matters to someone watching the sample.
type Impact string

const (
	ImpactNone     Impact = "none"
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

// StatusChange describes a lifecycle move recorded by a status_change event.
type StatusChange struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Version int64  `json:"version"`
}

// ReadingRef summarizes the reading behind a telemetry_recorded event.
type ReadingRef struct {
	ID          id.ReadingID `json:"id"`
	Type        string       `json:"type"`
	Value       float64      `json:"value"`
	Unit        string       `json:"unit"`
	WithinRange bool         `json:"within_range"`
}

// Event is immutable once appended. Sequence is assigned by Timeline.Append
// and is gap-free per sample.
type Event struct {
	ID              id.EventID          `json:"id"`
	SampleID        id.SampleID         `json:"sample_id"`
	Sequence        int64               `json:"sequence"`
	Type            EventType           `json:"type"`
	Impact          Impact              `json:"impact"`
	OccurredAt      time.Time           `json:"occurred_at"`
	RecordedAt      time.Time           `json:"recorded_at"`
	ActorID         string              `json:"actor_id,omitempty"`
	Description     string              `json:"description"`
	CustodyRecordID *id.CustodyRecordID `json:"custody_record_id,omitempty"`
	AlertID         *id.AlertID         `json:"alert_id,omitempty"`
	Reading         *ReadingRef         `json:"reading,omitempty"`
	StatusChange    *StatusChange       `json:"status_change,omitempty"`
}

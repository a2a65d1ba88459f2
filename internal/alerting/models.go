// Package alerting evaluates telemetry against per-sample thresholds and owns
// the raise, acknowledge and resolve lifecycle of tracking alerts.
package alerting

import (
	"time"

	id "sampletrack/pkg/domain"
)

// Type is the condition an alert reports.
type Type string

const (
	TypeTemperatureHigh  Type = "temperature_high"
	TypeTemperatureLow   Type = "temperature_low"
	TypeHumidityHigh     Type = "humidity_high"
	TypeHumidityLow      Type = "humidity_low"
	TypeCustodyIntegrity Type = "custody_integrity"
)

type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Standard required actions attached to every raised alert.
const (
	ActionNotifyQualityTeam = "notify quality team"
	ActionInvestigate       = "investigate"
	ActionAuditCustodyChain = "audit custody chain"
)

// ResolvedBySystem marks alerts closed by an in-range reading.
const ResolvedBySystem = "system"

// Alert moves raised -> acknowledged -> resolved, or straight from raised to
// resolved. A resolved alert is never reopened.
type Alert struct {
	ID              id.AlertID    `json:"id"`
	SampleID        id.SampleID   `json:"sample_id"`
	Type            Type          `json:"type"`
	Severity        Severity      `json:"severity"`
	Message         string        `json:"message"`
	Value           *float64      `json:"value,omitempty"`
	Unit            string        `json:"unit,omitempty"`
	ReadingID       *id.ReadingID `json:"reading_id,omitempty"`
	RequiredActions []string      `json:"required_actions"`
	RaisedAt        time.Time     `json:"raised_at"`
	Acknowledged    bool          `json:"acknowledged"`
	AcknowledgedAt  *time.Time    `json:"acknowledged_at,omitempty"`
	AcknowledgedBy  string        `json:"acknowledged_by,omitempty"`
	Resolved        bool          `json:"resolved"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy      string        `json:"resolved_by,omitempty"`
	ResolutionNote  string        `json:"resolution_note,omitempty"`
}

func (a *Alert) IsOpen() bool { return !a.Resolved }

func (a *Alert) Clone() *Alert {
	c := *a
	c.RequiredActions = append([]string(nil), a.RequiredActions...)
	if a.Value != nil {
		v := *a.Value
		c.Value = &v
	}
	if a.ReadingID != nil {
		r := *a.ReadingID
		c.ReadingID = &r
	}
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		c.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// Level is how closely a sample is being watched.
type Level string

const (
	// LevelRelaxed raises only critical excursions.
	LevelRelaxed Level = "relaxed"
	// LevelActive raises warning and critical excursions.
	LevelActive Level = "active"
)

// Package telemetry validates and normalizes environmental and positional
// readings before they reach the alerting engine and the timeline.
package telemetry

import (
	"time"

	id "sampletrack/pkg/domain"
)

// Type is the measured parameter.
type Type string

const (
	TypeTemperature Type = "temperature"
	TypeHumidity    Type = "humidity"
	TypeLocation    Type = "location"
)

// Canonical units after normalization.
const (
	UnitCelsius = "C"
	UnitPercent = "%"
	UnitDegrees = "deg"
)

// Source records how a reading entered the system.
type Source string

const (
	SourceDevice Source = "device"
	SourceManual Source = "manual"
)

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Reading is immutable once recorded. WithinRange is derived by the alerting
// engine before the reading is stored.
type Reading struct {
	ID          id.ReadingID `json:"id"`
	SampleID    id.SampleID  `json:"sample_id"`
	Type        Type         `json:"type"`
	Value       float64      `json:"value"`
	Unit        string       `json:"unit"`
	Location    *Location    `json:"location,omitempty"`
	DeviceID    string       `json:"device_id,omitempty"`
	Source      Source       `json:"source"`
	MeasuredAt  time.Time    `json:"measured_at"`
	ReceivedAt  time.Time    `json:"received_at"`
	WithinRange bool         `json:"within_range"`
}

// Raw is an unvalidated reading as submitted by a device or operator.
type Raw struct {
	Type      string
	Value     *float64
	Unit      string
	Timestamp *time.Time
	DeviceID  string
	Location  *Location
}

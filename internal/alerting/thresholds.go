package alerting

import (
	"fmt"

	"sampletrack/internal/sample"
	"sampletrack/internal/telemetry"
	dErrors "sampletrack/pkg/domain-errors"
)

// Band is an inclusive [Min, Max] range.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (b Band) Contains(v float64) bool { return v >= b.Min && v <= b.Max }

// Limits grade a parameter: inside Normal is in range, inside Warning but
// outside Normal is a warning, outside Warning is critical.
type Limits struct {
	Normal  Band `json:"normal"`
	Warning Band `json:"warning"`
}

func (l Limits) validate(name string) error {
	if l.Normal.Min > l.Normal.Max {
		return dErrors.Newf(dErrors.CodeValidation, "%s normal band min exceeds max", name)
	}
	if l.Warning.Min > l.Normal.Min || l.Warning.Max < l.Normal.Max {
		return dErrors.Newf(dErrors.CodeValidation, "%s warning band must contain the normal band", name)
	}
	return nil
}

// Thresholds are configured per sample.
type Thresholds struct {
	Temperature Limits `json:"temperature"`
	Humidity    Limits `json:"humidity"`
}

// DefaultThresholds: 2-8°C normal, 0-15°C warning; 30-60% RH normal, 20-70% warning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Temperature: Limits{Normal: Band{Min: 2, Max: 8}, Warning: Band{Min: 0, Max: 15}},
		Humidity:    Limits{Normal: Band{Min: 30, Max: 60}, Warning: Band{Min: 20, Max: 70}},
	}
}

func (t Thresholds) Validate() error {
	if err := t.Temperature.validate("temperature"); err != nil {
		return err
	}
	return t.Humidity.validate("humidity")
}

// Assessment is the pure evaluation of one reading.
type Assessment struct {
	Parameter   telemetry.Type
	WithinRange bool
	Severity    Severity
	AlertType   Type
	Message     string
}

// Assess grades r against t. Location readings are always within range.
func Assess(t Thresholds, r *telemetry.Reading) Assessment {
	a := Assessment{Parameter: r.Type, WithinRange: true, Severity: SeverityNone}

	var limits Limits
	var high, low Type
	switch r.Type {
	case telemetry.TypeTemperature:
		limits, high, low = t.Temperature, TypeTemperatureHigh, TypeTemperatureLow
	case telemetry.TypeHumidity:
		limits, high, low = t.Humidity, TypeHumidityHigh, TypeHumidityLow
	default:
		return a
	}

	if limits.Normal.Contains(r.Value) {
		return a
	}
	a.WithinRange = false
	a.AlertType = high
	bound := limits.Normal.Max
	if r.Value < limits.Normal.Min {
		a.AlertType = low
		bound = limits.Normal.Min
	}
	a.Severity = SeverityWarning
	if !limits.Warning.Contains(r.Value) {
		a.Severity = SeverityCritical
	}
	a.Message = fmt.Sprintf("%s %.2f%s outside normal range [%.2f, %.2f] (limit %.2f)",
		r.Type, r.Value, r.Unit, limits.Normal.Min, limits.Normal.Max, bound)
	return a
}

// LevelFor maps a lifecycle status to the monitoring level it implies. The
// sample is watched closely from the moment it is ready to leave the
// supplier until testing starts.
func LevelFor(status sample.Status) Level {
	switch status {
	case sample.StatusReadyForPickup,
		sample.StatusInTransit,
		sample.StatusDelivered,
		sample.StatusReceived,
		sample.StatusTestingInProgress:
		return LevelActive
	default:
		return LevelRelaxed
	}
}

// parameterTypes lists the alert types auto-resolved by an in-range reading.
func parameterTypes(p telemetry.Type) []Type {
	switch p {
	case telemetry.TypeTemperature:
		return []Type{TypeTemperatureHigh, TypeTemperatureLow}
	case telemetry.TypeHumidity:
		return []Type{TypeHumidityHigh, TypeHumidityLow}
	}
	return nil
}

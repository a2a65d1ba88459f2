package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sampletrack/internal/sample"
	"sampletrack/internal/telemetry"
)

func TestAssessTemperatureBands(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		value    float64
		within   bool
		severity Severity
		typ      Type
	}{
		{value: 2, within: true, severity: SeverityNone},
		{value: 5, within: true, severity: SeverityNone},
		{value: 8, within: true, severity: SeverityNone},
		{value: 8.01, severity: SeverityWarning, typ: TypeTemperatureHigh},
		{value: 9.5, severity: SeverityWarning, typ: TypeTemperatureHigh},
		{value: 15, severity: SeverityWarning, typ: TypeTemperatureHigh},
		{value: 15.5, severity: SeverityCritical, typ: TypeTemperatureHigh},
		{value: 1, severity: SeverityWarning, typ: TypeTemperatureLow},
		{value: 0, severity: SeverityWarning, typ: TypeTemperatureLow},
		{value: -2, severity: SeverityCritical, typ: TypeTemperatureLow},
	}
	for _, tt := range tests {
		a := Assess(th, &telemetry.Reading{Type: telemetry.TypeTemperature, Value: tt.value, Unit: "C"})
		assert.Equal(t, tt.within, a.WithinRange, "value %v", tt.value)
		assert.Equal(t, tt.severity, a.Severity, "value %v", tt.value)
		assert.Equal(t, tt.typ, a.AlertType, "value %v", tt.value)
		if !tt.within {
			assert.NotEmpty(t, a.Message)
		}
	}
}

func TestAssessHumidityBands(t *testing.T) {
	th := DefaultThresholds()
	assert.True(t, Assess(th, &telemetry.Reading{Type: telemetry.TypeHumidity, Value: 45}).WithinRange)

	a := Assess(th, &telemetry.Reading{Type: telemetry.TypeHumidity, Value: 65})
	assert.Equal(t, SeverityWarning, a.Severity)
	assert.Equal(t, TypeHumidityHigh, a.AlertType)

	a = Assess(th, &telemetry.Reading{Type: telemetry.TypeHumidity, Value: 10})
	assert.Equal(t, SeverityCritical, a.Severity)
	assert.Equal(t, TypeHumidityLow, a.AlertType)
}

func TestLevelFor(t *testing.T) {
	active := map[sample.Status]bool{
		sample.StatusReadyForPickup:    true,
		sample.StatusInTransit:         true,
		sample.StatusDelivered:         true,
		sample.StatusReceived:          true,
		sample.StatusTestingInProgress: true,
	}
	for _, st := range sample.AllStatuses() {
		want := LevelRelaxed
		if active[st] {
			want = LevelActive
		}
		assert.Equal(t, want, LevelFor(st), string(st))
	}
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.Temperature.Normal = Band{Min: 9, Max: 3}
	assert.Error(t, bad.Validate())
}

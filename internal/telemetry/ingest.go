package telemetry

import (
	"math"
	"strings"
	"time"

	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
)

// MaxClockSkew bounds how far in the future a reading's timestamp may be.
const MaxClockSkew = 5 * time.Minute

// Plausible physical bounds; anything outside is a device fault, not an excursion.
const (
	minCelsius = -273.15
	maxCelsius = 200.0
)

// conversionScale rounds away float noise from unit conversion (46.4°F is
// 8.000000000000002°C) while keeping every digit a device reports.
const conversionScale = 1e6

// Normalize validates raw and converts it to canonical units. It never
// touches storage, so a rejected reading leaves no trace.
func Normalize(sampleID id.SampleID, raw Raw, now time.Time) (*Reading, error) {
	typ := Type(strings.ToLower(strings.TrimSpace(raw.Type)))

	measuredAt := now
	if raw.Timestamp != nil && !raw.Timestamp.IsZero() {
		measuredAt = raw.Timestamp.UTC()
		if measuredAt.After(now.Add(MaxClockSkew)) {
			return nil, dErrors.New(dErrors.CodeValidation, "timestamp is in the future")
		}
	}

	r := &Reading{
		ID:         id.NewReadingID(),
		SampleID:   sampleID,
		Type:       typ,
		DeviceID:   strings.TrimSpace(raw.DeviceID),
		Source:     SourceManual,
		MeasuredAt: measuredAt,
		ReceivedAt: now,
	}
	if r.DeviceID != "" {
		r.Source = SourceDevice
	}

	switch typ {
	case TypeTemperature:
		v, err := requireValue(raw.Value)
		if err != nil {
			return nil, err
		}
		c, err := toCelsius(v, raw.Unit)
		if err != nil {
			return nil, err
		}
		r.Value, r.Unit = c, UnitCelsius
		if r.Location, err = optionalLocation(raw.Location); err != nil {
			return nil, err
		}
	case TypeHumidity:
		v, err := requireValue(raw.Value)
		if err != nil {
			return nil, err
		}
		unit := strings.TrimSpace(raw.Unit)
		if unit != "" && unit != UnitPercent && !strings.EqualFold(unit, "percent") {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unsupported humidity unit %q", raw.Unit)
		}
		if v < 0 || v > 100 {
			return nil, dErrors.New(dErrors.CodeValidation, "humidity must be between 0 and 100")
		}
		r.Value, r.Unit = v, UnitPercent
		if r.Location, err = optionalLocation(raw.Location); err != nil {
			return nil, err
		}
	case TypeLocation:
		loc, err := validLocation(raw.Location)
		if err != nil {
			return nil, err
		}
		r.Location, r.Unit = loc, UnitDegrees
	case "":
		return nil, dErrors.New(dErrors.CodeValidation, "type is required")
	default:
		return nil, dErrors.Newf(dErrors.CodeValidation, "unsupported reading type %q", raw.Type)
	}
	return r, nil
}

func requireValue(v *float64) (float64, error) {
	if v == nil {
		return 0, dErrors.New(dErrors.CodeValidation, "value is required")
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, dErrors.New(dErrors.CodeValidation, "value must be a finite number")
	}
	return *v, nil
}

func toCelsius(v float64, unit string) (float64, error) {
	var c float64
	switch strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(unit), "°"))) {
	case "", "C", "CELSIUS":
		c = v
	case "F", "FAHRENHEIT":
		c = (v - 32) * 5 / 9
	case "K", "KELVIN":
		c = v - 273.15
	default:
		return 0, dErrors.Newf(dErrors.CodeValidation, "unsupported temperature unit %q", unit)
	}
	if c < minCelsius || c > maxCelsius {
		return 0, dErrors.New(dErrors.CodeValidation, "temperature outside physical bounds")
	}
	return math.Round(c*conversionScale) / conversionScale, nil
}

// optionalLocation validates the position a device may attach to a
// temperature or humidity reading.
func optionalLocation(loc *Location) (*Location, error) {
	if loc == nil {
		return nil, nil
	}
	return validLocation(loc)
}

func validLocation(loc *Location) (*Location, error) {
	if loc == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "location is required for location readings")
	}
	if loc.Lat < -90 || loc.Lat > 90 || math.IsNaN(loc.Lat) {
		return nil, dErrors.New(dErrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if loc.Lng < -180 || loc.Lng > 180 || math.IsNaN(loc.Lng) {
		return nil, dErrors.New(dErrors.CodeValidation, "longitude must be between -180 and 180")
	}
	out := *loc
	out.Address = strings.TrimSpace(out.Address)
	return &out, nil
}

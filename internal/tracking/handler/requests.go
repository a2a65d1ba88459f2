package handler

import (
	"strings"
	"time"

	"sampletrack/internal/alerting"
	"sampletrack/internal/custody"
	"sampletrack/internal/sample"
	"sampletrack/internal/telemetry"
	"sampletrack/internal/tracking"
	dErrors "sampletrack/pkg/domain-errors"
	platformstrings "sampletrack/pkg/platform/strings"
)

const (
	maxIDLen          = 128
	maxTextLen        = 2000
	maxCustomFields   = 32
	maxLabels         = 32
	defaultEventLimit = 100
	maxEventLimit     = 500
)

// CreateSampleRequest is the body of POST /samples.
type CreateSampleRequest struct {
	SampleNumber       string            `json:"sample_number"`
	Type               string            `json:"type"`
	Priority           string            `json:"priority"`
	ProductDescription string            `json:"product_description"`
	Quantity           sample.Quantity   `json:"quantity"`
	Packaging          sample.Packaging  `json:"packaging"`
	Labeling           sample.Labeling   `json:"labeling"`
	SupplierID         string            `json:"supplier_id"`
	BuyerID            string            `json:"buyer_id"`
	CustomFields       map[string]string `json:"custom_fields"`

	parsedType     sample.Type
	parsedPriority sample.Priority
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateSampleRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.SampleNumber) > maxIDLen || len(r.SupplierID) > maxIDLen || len(r.BuyerID) > maxIDLen {
		return dErrors.Newf(dErrors.CodeValidation, "identifiers must be at most %d characters", maxIDLen)
	}
	if len(r.ProductDescription) > maxTextLen {
		return dErrors.Newf(dErrors.CodeValidation, "product_description must be at most %d characters", maxTextLen)
	}
	if len(r.CustomFields) > maxCustomFields {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d custom fields are allowed", maxCustomFields)
	}
	r.Labeling.Labels = platformstrings.DedupeAndTrim(r.Labeling.Labels)
	if len(r.Labeling.Labels) > maxLabels {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d labels are allowed", maxLabels)
	}

	// Required fields
	r.SampleNumber = strings.TrimSpace(r.SampleNumber)
	if r.SampleNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "sample_number is required")
	}
	r.ProductDescription = strings.TrimSpace(r.ProductDescription)
	if r.ProductDescription == "" {
		return dErrors.New(dErrors.CodeValidation, "product_description is required")
	}
	if r.Quantity.Value <= 0 {
		return dErrors.New(dErrors.CodeValidation, "quantity.value must be positive")
	}
	r.Quantity.Unit = strings.TrimSpace(r.Quantity.Unit)
	if r.Quantity.Unit == "" {
		return dErrors.New(dErrors.CodeValidation, "quantity.unit is required")
	}

	typ, err := sample.ParseType(r.Type)
	if err != nil {
		return err
	}
	r.parsedType = typ
	priority, err := sample.ParsePriority(r.Priority)
	if err != nil {
		return err
	}
	r.parsedPriority = priority
	return nil
}

func (r *CreateSampleRequest) Command() tracking.RegisterCommand {
	return tracking.RegisterCommand{
		SampleNumber:       r.SampleNumber,
		Type:               r.parsedType,
		Priority:           r.parsedPriority,
		ProductDescription: r.ProductDescription,
		Quantity:           r.Quantity,
		Packaging:          r.Packaging,
		Labeling:           r.Labeling,
		SupplierID:         strings.TrimSpace(r.SupplierID),
		BuyerID:            strings.TrimSpace(r.BuyerID),
		CustomFields:       r.CustomFields,
	}
}

// TelemetryRequest is the body of POST /samples/{id}/telemetry. Unit and
// range checks happen in telemetry.Normalize so device and manual readings
// share one rule set.
type TelemetryRequest struct {
	Type      string              `json:"type"`
	Value     *float64            `json:"value"`
	Unit      string              `json:"unit"`
	Timestamp *time.Time          `json:"timestamp"`
	DeviceID  string              `json:"device_id"`
	Location  *telemetry.Location `json:"location"`
}

func (r *TelemetryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.DeviceID) > maxIDLen {
		return dErrors.Newf(dErrors.CodeValidation, "device_id must be at most %d characters", maxIDLen)
	}
	if strings.TrimSpace(r.Type) == "" {
		return dErrors.New(dErrors.CodeValidation, "type is required")
	}
	return nil
}

func (r *TelemetryRequest) Raw() telemetry.Raw {
	return telemetry.Raw{
		Type:      r.Type,
		Value:     r.Value,
		Unit:      r.Unit,
		Timestamp: r.Timestamp,
		DeviceID:  r.DeviceID,
		Location:  r.Location,
	}
}

type PartyRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
}

func (p PartyRequest) party() custody.Party {
	return custody.Party{ID: p.ID, Name: p.Name, Organization: p.Organization}
}

type AuthorizationRequest struct {
	AuthorizedBy string     `json:"authorized_by"`
	Token        string     `json:"token"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

// CustodyTransferRequest is the body of POST /samples/{id}/custody-transfer.
// A bearer token in the Authorization header takes precedence over
// authorization.token.
type CustodyTransferRequest struct {
	From          PartyRequest          `json:"from"`
	To            PartyRequest          `json:"to"`
	Location      string                `json:"location"`
	Purpose       string                `json:"purpose"`
	Conditions    string                `json:"conditions"`
	WitnessedBy   string                `json:"witnessed_by"`
	Authorization *AuthorizationRequest `json:"authorization"`

	parsedPurpose custody.Purpose
}

func (r *CustodyTransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.From.ID) > maxIDLen || len(r.To.ID) > maxIDLen || len(r.WitnessedBy) > maxIDLen {
		return dErrors.Newf(dErrors.CodeValidation, "identifiers must be at most %d characters", maxIDLen)
	}
	if len(r.Location) > maxTextLen || len(r.Conditions) > maxTextLen {
		return dErrors.Newf(dErrors.CodeValidation, "text fields must be at most %d characters", maxTextLen)
	}
	if strings.TrimSpace(r.From.ID) == "" {
		return dErrors.New(dErrors.CodeValidation, "from.id is required")
	}
	if strings.TrimSpace(r.To.ID) == "" {
		return dErrors.New(dErrors.CodeValidation, "to.id is required")
	}
	if strings.TrimSpace(r.Location) == "" {
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	purpose, err := custody.ParsePurpose(r.Purpose)
	if err != nil {
		return err
	}
	r.parsedPurpose = purpose
	return nil
}

func (r *CustodyTransferRequest) Transfer(bearer string) custody.TransferRequest {
	req := custody.TransferRequest{
		From:        r.From.party(),
		To:          r.To.party(),
		Location:    r.Location,
		Purpose:     r.parsedPurpose,
		Conditions:  r.Conditions,
		WitnessedBy: r.WitnessedBy,
	}
	if r.Authorization != nil {
		req.Authorization = custody.Authorization{
			AuthorizedBy: r.Authorization.AuthorizedBy,
			Token:        r.Authorization.Token,
			ExpiresAt:    r.Authorization.ExpiresAt,
		}
	}
	if bearer != "" {
		req.Authorization.Token = bearer
	}
	return req
}

// StatusRequest is the body of POST /samples/{id}/status.
type StatusRequest struct {
	TargetStatus    string `json:"target_status"`
	ExpectedVersion *int64 `json:"expected_version"`

	parsedStatus sample.Status
}

func (r *StatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.TargetStatus) == "" {
		return dErrors.New(dErrors.CodeValidation, "target_status is required")
	}
	if r.ExpectedVersion == nil {
		return dErrors.New(dErrors.CodeValidation, "expected_version is required")
	}
	if *r.ExpectedVersion < 1 {
		return dErrors.New(dErrors.CodeValidation, "expected_version must be positive")
	}
	status, err := sample.ParseStatus(r.TargetStatus)
	if err != nil {
		return err
	}
	r.parsedStatus = status
	return nil
}

// NoteRequest is the body of alert actions and hold release.
type NoteRequest struct {
	Note string `json:"note"`
}

func (r *NoteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Note = strings.TrimSpace(r.Note)
	if len(r.Note) > maxTextLen {
		return dErrors.Newf(dErrors.CodeValidation, "note must be at most %d characters", maxTextLen)
	}
	return nil
}

type BandRequest struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type LimitsRequest struct {
	Normal  BandRequest `json:"normal"`
	Warning BandRequest `json:"warning"`
}

func (l LimitsRequest) limits() alerting.Limits {
	return alerting.Limits{
		Normal:  alerting.Band{Min: l.Normal.Min, Max: l.Normal.Max},
		Warning: alerting.Band{Min: l.Warning.Min, Max: l.Warning.Max},
	}
}

// ThresholdsRequest is the body of PUT /samples/{id}/thresholds.
type ThresholdsRequest struct {
	Temperature *LimitsRequest `json:"temperature"`
	Humidity    *LimitsRequest `json:"humidity"`

	parsed alerting.Thresholds
}

func (r *ThresholdsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Temperature == nil || r.Humidity == nil {
		return dErrors.New(dErrors.CodeValidation, "temperature and humidity limits are required")
	}
	t := alerting.Thresholds{
		Temperature: r.Temperature.limits(),
		Humidity:    r.Humidity.limits(),
	}
	if err := t.Validate(); err != nil {
		return err
	}
	r.parsed = t
	return nil
}

package handler

import (
	"time"

	"sampletrack/internal/alerting"
	"sampletrack/internal/custody"
	"sampletrack/internal/sample"
	"sampletrack/internal/telemetry"
	"sampletrack/internal/timeline"
	"sampletrack/internal/tracking"
)

// SampleResponse is the HTTP representation of a sample.
type SampleResponse struct {
	ID                 string            `json:"id"`
	SampleNumber       string            `json:"sample_number"`
	Status             string            `json:"status"`
	NextStatuses       []string          `json:"next_statuses"`
	Type               string            `json:"type"`
	Priority           string            `json:"priority"`
	ProductDescription string            `json:"product_description"`
	Quantity           sample.Quantity   `json:"quantity"`
	Packaging          sample.Packaging  `json:"packaging"`
	Labeling           sample.Labeling   `json:"labeling"`
	SupplierID         string            `json:"supplier_id,omitempty"`
	BuyerID            string            `json:"buyer_id,omitempty"`
	RequestedBy        string            `json:"requested_by,omitempty"`
	CustomFields       map[string]string `json:"custom_fields,omitempty"`
	OnHold             bool              `json:"on_hold"`
	Hold               *sample.Hold      `json:"hold,omitempty"`
	Version            int64             `json:"version"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func FromSample(s *sample.Sample) *SampleResponse {
	if s == nil {
		return nil
	}
	next := make([]string, 0, 3)
	if !s.OnHold() {
		for _, st := range sample.NextStatuses(s.Status) {
			next = append(next, string(st))
		}
	}
	return &SampleResponse{
		ID:                 s.ID.String(),
		SampleNumber:       s.SampleNumber,
		Status:             string(s.Status),
		NextStatuses:       next,
		Type:               string(s.Type),
		Priority:           string(s.Priority),
		ProductDescription: s.ProductDescription,
		Quantity:           s.Quantity,
		Packaging:          s.Packaging,
		Labeling:           s.Labeling,
		SupplierID:         s.SupplierID,
		BuyerID:            s.BuyerID,
		RequestedBy:        s.RequestedBy,
		CustomFields:       s.CustomFields,
		OnHold:             s.OnHold(),
		Hold:               s.Hold,
		Version:            s.Version,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// TelemetryAcceptedResponse is returned with 202 from the telemetry endpoint.
type TelemetryAcceptedResponse struct {
	ReadingID        string    `json:"reading_id"`
	Type             string    `json:"type"`
	Value            float64   `json:"value"`
	Unit             string    `json:"unit"`
	WithinRange      bool      `json:"within_range"`
	AlertID          *string   `json:"alert_id,omitempty"`
	OpenAlertID      *string   `json:"open_alert_id,omitempty"`
	ResolvedAlertIDs []string  `json:"resolved_alert_ids,omitempty"`
	Monitoring       string    `json:"monitoring"`
	MeasuredAt       time.Time `json:"measured_at"`
}

func FromIngest(res *tracking.IngestResult) *TelemetryAcceptedResponse {
	out := &TelemetryAcceptedResponse{
		ReadingID:   res.Reading.ID.String(),
		Type:        string(res.Reading.Type),
		Value:       res.Reading.Value,
		Unit:        res.Reading.Unit,
		WithinRange: res.WithinRange,
		Monitoring:  string(res.MonitoringLevel),
		MeasuredAt:  res.Reading.MeasuredAt,
	}
	if res.AlertID != nil {
		v := res.AlertID.String()
		out.AlertID = &v
	}
	if res.OpenAlertID != nil {
		v := res.OpenAlertID.String()
		out.OpenAlertID = &v
	}
	for _, a := range res.ResolvedAlerts {
		out.ResolvedAlertIDs = append(out.ResolvedAlertIDs, a.String())
	}
	return out
}

// CustodyTransferResponse is returned with 201 from the custody endpoint.
type CustodyTransferResponse struct {
	Record *custody.Record `json:"record"`
	Sample *SampleResponse `json:"sample"`
}

func FromTransfer(res *tracking.TransferResult) *CustodyTransferResponse {
	return &CustodyTransferResponse{
		Record: res.Record,
		Sample: FromSample(res.Sample),
	}
}

type CustodyChainResponse struct {
	Records []*custody.Record `json:"records"`
	Length  int               `json:"length"`
}

func FromChain(records []*custody.Record) *CustodyChainResponse {
	if records == nil {
		records = []*custody.Record{}
	}
	return &CustodyChainResponse{Records: records, Length: len(records)}
}

// TrackingResponse is the current snapshot of a sample in motion.
type TrackingResponse struct {
	SampleID         string             `json:"sample_id"`
	Status           string             `json:"status"`
	Version          int64              `json:"version"`
	OnHold           bool               `json:"on_hold"`
	Monitoring       string             `json:"monitoring"`
	LastLocation     *telemetry.Reading `json:"last_location,omitempty"`
	LastTemperature  *telemetry.Reading `json:"last_temperature,omitempty"`
	LastHumidity     *telemetry.Reading `json:"last_humidity,omitempty"`
	OpenAlerts       []*alerting.Alert  `json:"open_alerts"`
	CurrentCustodian *custody.Party     `json:"current_custodian,omitempty"`
	CustodyLength    int                `json:"custody_length"`
	LastSequence     int64              `json:"last_sequence"`
}

func FromSnapshot(s *tracking.Snapshot) *TrackingResponse {
	open := s.OpenAlerts
	if open == nil {
		open = []*alerting.Alert{}
	}
	return &TrackingResponse{
		SampleID:         s.Sample.ID.String(),
		Status:           string(s.Sample.Status),
		Version:          s.Sample.Version,
		OnHold:           s.Sample.OnHold(),
		Monitoring:       string(s.Monitoring),
		LastLocation:     s.LastLocation,
		LastTemperature:  s.LastTemperature,
		LastHumidity:     s.LastHumidity,
		OpenAlerts:       open,
		CurrentCustodian: s.CurrentCustodian,
		CustodyLength:    s.CustodyLength,
		LastSequence:     s.LastSequence,
	}
}

// EventsPageResponse is one page of the timeline. NextSince is the value to
// pass as since for the following page.
type EventsPageResponse struct {
	Events    []timeline.Event `json:"events"`
	NextSince int64            `json:"next_since"`
	HasMore   bool             `json:"has_more"`
}

func FromEvents(events []timeline.Event, since int64, limit int) *EventsPageResponse {
	if events == nil {
		events = []timeline.Event{}
	}
	next := since
	if n := len(events); n > 0 {
		next = events[n-1].Sequence
	}
	return &EventsPageResponse{
		Events:    events,
		NextSince: next,
		HasMore:   len(events) == limit,
	}
}

type AlertsResponse struct {
	Alerts []*alerting.Alert `json:"alerts"`
}

func FromAlerts(alerts []*alerting.Alert) *AlertsResponse {
	if alerts == nil {
		alerts = []*alerting.Alert{}
	}
	return &AlertsResponse{Alerts: alerts}
}

type ReadingsResponse struct {
	Readings []*telemetry.Reading `json:"readings"`
}

func FromReadings(readings []*telemetry.Reading) *ReadingsResponse {
	if readings == nil {
		readings = []*telemetry.Reading{}
	}
	return &ReadingsResponse{Readings: readings}
}

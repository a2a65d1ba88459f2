package sample

import (
	"strings"
	"time"

	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
)

// Status is the lifecycle position of a physical sample.
type Status string

const (
	StatusRequested         Status = "requested"
	StatusApproved          Status = "approved"
	StatusPreparing         Status = "preparing"
	StatusReadyForPickup    Status = "ready_for_pickup"
	StatusInTransit         Status = "in_transit"
	StatusDelivered         Status = "delivered"
	StatusReceived          Status = "received"
	StatusTestingInProgress Status = "testing_in_progress"
	StatusTestingComplete   Status = "testing_complete"
	StatusResultsAvailable  Status = "results_available"
	StatusApprovedForUse    Status = "approved_for_use"
	StatusRejected          Status = "rejected"
	StatusReturned          Status = "returned"
	StatusDisposed          Status = "disposed"
)

// transitions is the fixed lifecycle graph. A status absent as a key has no
// outgoing edges.
var transitions = map[Status][]Status{
	StatusRequested:         {StatusApproved, StatusRejected},
	StatusApproved:          {StatusPreparing},
	StatusPreparing:         {StatusReadyForPickup},
	StatusReadyForPickup:    {StatusInTransit},
	StatusInTransit:         {StatusDelivered},
	StatusDelivered:         {StatusReceived},
	StatusReceived:          {StatusTestingInProgress, StatusReturned},
	StatusTestingInProgress: {StatusTestingComplete},
	StatusTestingComplete:   {StatusResultsAvailable},
	StatusResultsAvailable:  {StatusApprovedForUse, StatusRejected, StatusReturned},
	StatusRejected:          {StatusReturned},
	StatusReturned:          {StatusDisposed},
}

var allStatuses = []Status{
	StatusRequested, StatusApproved, StatusPreparing, StatusReadyForPickup,
	StatusInTransit, StatusDelivered, StatusReceived, StatusTestingInProgress,
	StatusTestingComplete, StatusResultsAvailable, StatusApprovedForUse,
	StatusRejected, StatusReturned, StatusDisposed,
}

// ParseStatus accepts either the wire form ("in_transit") or the upper-case
// constant form ("IN_TRANSIT").
func ParseStatus(s string) (Status, error) {
	norm := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range allStatuses {
		if st == norm {
			return st, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown status %q", s)
}

// AllStatuses returns every lifecycle status in graph order.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// CanTransition reports whether from -> to is an edge of the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable in one step from s.
func NextStatuses(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

// IsTerminal reports whether s has no outgoing edges.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) String() string { return string(s) }

// Type classifies why a sample was requested.
type Type string

const (
	TypeDevelopment    Type = "development"
	TypePreProduction  Type = "pre_production"
	TypeProduction     Type = "production"
	TypeQualityControl Type = "quality_control"
	TypeReference      Type = "reference"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeDevelopment, TypePreProduction, TypeProduction, TypeQualityControl, TypeReference:
		return t, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown sample type %q", s)
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority defaults an empty value to PriorityNormal.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown priority %q", s)
}

type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type Packaging struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	SealID      string `json:"seal_id,omitempty"`
}

type Labeling struct {
	Barcode     string   `json:"barcode,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	HazardClass string   `json:"hazard_class,omitempty"`
}

// Hold marks a sample frozen pending investigation, for example after a
// custody chain failed verification.
type Hold struct {
	Reason   string    `json:"reason"`
	PlacedAt time.Time `json:"placed_at"`
	PlacedBy string    `json:"placed_by,omitempty"`
}

// Sample is a tracked physical specimen. Version increments exactly once per
// accepted mutation; Status only moves along the lifecycle graph.
type Sample struct {
	ID                 id.SampleID       `json:"id"`
	SampleNumber       string            `json:"sample_number"`
	Status             Status            `json:"status"`
	Type               Type              `json:"type"`
	Priority           Priority          `json:"priority"`
	ProductDescription string            `json:"product_description"`
	Quantity           Quantity          `json:"quantity"`
	Packaging          Packaging         `json:"packaging"`
	Labeling           Labeling          `json:"labeling"`
	SupplierID         string            `json:"supplier_id,omitempty"`
	BuyerID            string            `json:"buyer_id,omitempty"`
	RequestedBy        string            `json:"requested_by,omitempty"`
	CustomFields       map[string]string `json:"custom_fields,omitempty"`
	Hold               *Hold             `json:"hold,omitempty"`
	Version            int64             `json:"version"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// OnHold reports whether the sample is frozen.
func (s *Sample) OnHold() bool { return s.Hold != nil }

// Clone returns a deep copy so callers can mutate without touching stored state.
func (s *Sample) Clone() *Sample {
	if s == nil {
		return nil
	}
	c := *s
	if s.Labeling.Labels != nil {
		c.Labeling.Labels = append([]string(nil), s.Labeling.Labels...)
	}
	if s.CustomFields != nil {
		c.CustomFields = make(map[string]string, len(s.CustomFields))
		for k, v := range s.CustomFields {
			c.CustomFields[k] = v
		}
	}
	if s.Hold != nil {
		h := *s.Hold
		c.Hold = &h
	}
	return &c
}

// NewSample builds a sample in its initial state. It enforces the invariants
// that do not depend on storage.
func NewSample(sampleID id.SampleID, number string, typ Type, priority Priority, description string, qty Quantity, now time.Time) (*Sample, error) {
	number = strings.TrimSpace(number)
	description = strings.TrimSpace(description)
	if sampleID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sample id is required")
	}
	if number == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sample number is required")
	}
	if description == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product description is required")
	}
	if qty.Value <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "quantity must be positive")
	}
	return &Sample{
		ID:                 sampleID,
		SampleNumber:       number,
		Status:             StatusRequested,
		Type:               typ,
		Priority:           priority,
		ProductDescription: description,
		Quantity:           qty,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

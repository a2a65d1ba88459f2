// Package custody is the append-only, hash-chained ledger of physical
// possession transfers for each sample.
package custody

import (
	"strings"
	"time"

	id "sampletrack/pkg/domain"
	dErrors "sampletrack/pkg/domain-errors"
)

// Purpose says why possession changed hands.
type Purpose string

const (
	PurposePickup   Purpose = "pickup"
	PurposeHandoff  Purpose = "handoff"
	PurposeDelivery Purpose = "delivery"
	PurposeReceipt  Purpose = "receipt"
	PurposeTesting  Purpose = "testing"
	PurposeStorage  Purpose = "storage"
	PurposeReturn   Purpose = "return"
	PurposeDisposal Purpose = "disposal"
)

func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(strings.ToLower(strings.TrimSpace(s))); p {
	case PurposePickup, PurposeHandoff, PurposeDelivery, PurposeReceipt,
		PurposeTesting, PurposeStorage, PurposeReturn, PurposeDisposal:
		return p, nil
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "purpose is required")
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown custody purpose %q", s)
}

// Party is one side of a handoff.
type Party struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// Authorization is the evidence a caller presents for a transfer. Token is
// used by the JWT authorizer; AuthorizedBy and ExpiresAt by the static one.
type Authorization struct {
	AuthorizedBy string
	Token        string
	ExpiresAt    *time.Time
}

// Record is immutable once appended. IntegrityHash covers PreviousHash and
// every other field, so editing any stored field breaks the chain from that
// index onward.
type Record struct {
	ID            id.CustodyRecordID `json:"id"`
	SampleID      id.SampleID        `json:"sample_id"`
	Index         int                `json:"index"`
	From          Party              `json:"from"`
	To            Party              `json:"to"`
	Location      string             `json:"location"`
	Purpose       Purpose            `json:"purpose"`
	Conditions    string             `json:"conditions,omitempty"`
	WitnessedBy   string             `json:"witnessed_by,omitempty"`
	AuthorizedBy  string             `json:"authorized_by"`
	TransferredAt time.Time          `json:"transferred_at"`
	PreviousHash  string             `json:"previous_hash"`
	IntegrityHash string             `json:"integrity_hash"`
}

// TransferRequest carries the caller-supplied fields of a new record.
type TransferRequest struct {
	From          Party
	To            Party
	Location      string
	Purpose       Purpose
	Conditions    string
	WitnessedBy   string
	Authorization Authorization
}

// Verification is the result of recomputing a sample's chain. BrokenIndex is
// -1 when Intact.
type Verification struct {
	Intact      bool   `json:"intact"`
	BrokenIndex int    `json:"broken_index"`
	Length      int    `json:"length"`
	Reason      string `json:"reason,omitempty"`
}

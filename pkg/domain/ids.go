// Package domain holds typed identifiers shared across tracking modules.
//
// Each ID wraps a uuid.UUID so a SampleID can never be passed where an AlertID
// is expected. Parse functions are the trust boundary for IDs arriving from
// HTTP paths and bodies.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "sampletrack/pkg/domain-errors"
)

type (
	SampleID        uuid.UUID
	AlertID         uuid.UUID
	CustodyRecordID uuid.UUID
	EventID         uuid.UUID
	ReadingID       uuid.UUID
)

// canonicalLen is the length of the hyphenated hex form.
const canonicalLen = 36

func parseUUID(kind, s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", kind)
	}
	if len(s) != canonicalLen {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "invalid %s", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "invalid %s", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "invalid %s", kind)
	}
	return u, nil
}

func ParseSampleID(s string) (SampleID, error) {
	u, err := parseUUID("sample id", s)
	return SampleID(u), err
}

func ParseAlertID(s string) (AlertID, error) {
	u, err := parseUUID("alert id", s)
	return AlertID(u), err
}

func ParseCustodyRecordID(s string) (CustodyRecordID, error) {
	u, err := parseUUID("custody record id", s)
	return CustodyRecordID(u), err
}

func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID("event id", s)
	return EventID(u), err
}

func NewSampleID() SampleID               { return SampleID(uuid.New()) }
func NewAlertID() AlertID                 { return AlertID(uuid.New()) }
func NewCustodyRecordID() CustodyRecordID { return CustodyRecordID(uuid.New()) }
func NewEventID() EventID                 { return EventID(uuid.New()) }
func NewReadingID() ReadingID             { return ReadingID(uuid.New()) }

func (id SampleID) String() string { return uuid.UUID(id).String() }
func (id SampleID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id SampleID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *SampleID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = SampleID(u)
	return nil
}

func (id AlertID) String() string { return uuid.UUID(id).String() }
func (id AlertID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *AlertID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = AlertID(u)
	return nil
}

func (id CustodyRecordID) String() string { return uuid.UUID(id).String() }
func (id CustodyRecordID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CustodyRecordID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *CustodyRecordID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = CustodyRecordID(u)
	return nil
}

func (id EventID) String() string { return uuid.UUID(id).String() }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id EventID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *EventID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = EventID(u)
	return nil
}

func (id ReadingID) String() string { return uuid.UUID(id).String() }
func (id ReadingID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ReadingID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}
func (id *ReadingID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ReadingID(u)
	return nil
}

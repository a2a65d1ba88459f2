// Package tracking is the sample lifecycle controller. It is the only writer
// of a sample's status and version, and it runs every mutation for one
// sample through that sample's serialization lane so custody appends, alert
// changes and timeline sequence numbers are totally ordered per sample.
package tracking

import (
	"sampletrack/internal/alerting"
	"sampletrack/internal/custody"
	"sampletrack/internal/sample"
	"sampletrack/internal/telemetry"
	id "sampletrack/pkg/domain"
)

// RegisterCommand carries the fields of a new sample. Type and Priority are
// already parsed by the transport.
type RegisterCommand struct {
	SampleNumber       string
	Type               sample.Type
	Priority           sample.Priority
	ProductDescription string
	Quantity           sample.Quantity
	Packaging          sample.Packaging
	Labeling           sample.Labeling
	SupplierID         string
	BuyerID            string
	CustomFields       map[string]string
}

// IngestResult is what a caller learns synchronously about a reading. AlertID
// is set only when this reading raised a new alert.
type IngestResult struct {
	Reading         *telemetry.Reading
	WithinRange     bool
	AlertID         *id.AlertID
	OpenAlertID     *id.AlertID
	ResolvedAlerts  []id.AlertID
	MonitoringLevel alerting.Level
}

// TransferResult is the appended record plus the sample after any implied
// status change.
type TransferResult struct {
	Record *custody.Record
	Sample *sample.Sample
}

// Snapshot is the current tracking picture of a sample.
type Snapshot struct {
	Sample           *sample.Sample
	Monitoring       alerting.Level
	LastLocation     *telemetry.Reading
	LastTemperature  *telemetry.Reading
	LastHumidity     *telemetry.Reading
	OpenAlerts       []*alerting.Alert
	CurrentCustodian *custody.Party
	CustodyLength    int
	LastSequence     int64
}

// impliedStatus maps a custody purpose to the status it moves a sample into.
func impliedStatus(purpose custody.Purpose, current sample.Status) (sample.Status, bool) {
	switch {
	case purpose == custody.PurposePickup && current == sample.StatusReadyForPickup:
		return sample.StatusInTransit, true
	case purpose == custody.PurposeDelivery && current == sample.StatusInTransit:
		return sample.StatusDelivered, true
	case purpose == custody.PurposeReceipt && current == sample.StatusDelivered:
		return sample.StatusReceived, true
	}
	return "", false
}

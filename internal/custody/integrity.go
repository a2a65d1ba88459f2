package custody

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	id "sampletrack/pkg/domain"
)

type domainKey [32]byte

// Domain keys are ASCII names zero-padded to 32 bytes. Changing either one
// invalidates every stored chain.
var (
	recordDomainKey = domainKey{
		's', 'a', 'm', 'p', 'l', 'e', 't', 'r', 'a', 'c', 'k', '.', 'c', 'u', 's', 't',
		'o', 'd', 'y', '.', 'r', 'e', 'c', 'o', 'r', 'd', 0, 0, 0, 0, 0, 0,
	}
	seedDomainKey = domainKey{
		's', 'a', 'm', 'p', 'l', 'e', 't', 'r', 'a', 'c', 'k', '.', 'c', 'u', 's', 't',
		'o', 'd', 'y', '.', 's', 'e', 'e', 'd', 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// encMode uses Core Deterministic Encoding so the same record always hashes
// to the same bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("custody: CBOR encoder initialization failed: " + err.Error())
	}
}

// canonicalRecord is the hashed view of a Record. Timestamps are reduced to
// microseconds, the precision Postgres keeps.
type canonicalRecord struct {
	PreviousHash      string `cbor:"prev"`
	RecordID          string `cbor:"id"`
	SampleID          string `cbor:"sample"`
	Index             int    `cbor:"index"`
	FromID            string `cbor:"from_id"`
	FromName          string `cbor:"from_name"`
	FromOrganization  string `cbor:"from_org"`
	ToID              string `cbor:"to_id"`
	ToName            string `cbor:"to_name"`
	ToOrganization    string `cbor:"to_org"`
	Location          string `cbor:"location"`
	Purpose           string `cbor:"purpose"`
	Conditions        string `cbor:"conditions"`
	WitnessedBy       string `cbor:"witnessed_by"`
	AuthorizedBy      string `cbor:"authorized_by"`
	TransferredAtUsec int64  `cbor:"transferred_at_us"`
}

func keyedHash(key domainKey, data []byte) string {
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		// only possible with a key that is not 32 bytes
		panic("custody: " + err.Error())
	}
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Seed is the PreviousHash of a sample's first record.
func Seed(sampleID id.SampleID) string {
	return keyedHash(seedDomainKey, []byte(sampleID.String()))
}

// ComputeHash returns the integrity hash for rec from its fields and
// PreviousHash. rec.IntegrityHash is ignored.
func ComputeHash(rec *Record) (string, error) {
	raw, err := encMode.Marshal(canonicalRecord{
		PreviousHash:      rec.PreviousHash,
		RecordID:          rec.ID.String(),
		SampleID:          rec.SampleID.String(),
		Index:             rec.Index,
		FromID:            rec.From.ID,
		FromName:          rec.From.Name,
		FromOrganization:  rec.From.Organization,
		ToID:              rec.To.ID,
		ToName:            rec.To.Name,
		ToOrganization:    rec.To.Organization,
		Location:          rec.Location,
		Purpose:           string(rec.Purpose),
		Conditions:        rec.Conditions,
		WitnessedBy:       rec.WitnessedBy,
		AuthorizedBy:      rec.AuthorizedBy,
		TransferredAtUsec: rec.TransferredAt.UnixMicro(),
	})
	if err != nil {
		return "", fmt.Errorf("encode custody record: %w", err)
	}
	return keyedHash(recordDomainKey, raw), nil
}

// VerifyChain recomputes every hash from the seed and reports the first index
// whose linkage or content does not match. records must be in index order.
func VerifyChain(sampleID id.SampleID, records []*Record) Verification {
	v := Verification{Intact: true, BrokenIndex: -1, Length: len(records)}
	prev := Seed(sampleID)
	for i, rec := range records {
		reason := ""
		switch {
		case rec.SampleID != sampleID:
			reason = "record belongs to another sample"
		case rec.Index != i:
			reason = fmt.Sprintf("record index %d out of order", rec.Index)
		case rec.PreviousHash != prev:
			reason = "previous hash does not link to prior record"
		default:
			sum, err := ComputeHash(rec)
			if err != nil {
				reason = err.Error()
			} else if sum != rec.IntegrityHash {
				reason = "integrity hash mismatch"
			}
		}
		if reason != "" {
			return Verification{Intact: false, BrokenIndex: i, Length: len(records), Reason: reason}
		}
		prev = rec.IntegrityHash
	}
	return v
}

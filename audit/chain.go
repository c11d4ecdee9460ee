package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

func hashBytes(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// chainHash links an event to its predecessor
func chainHash(prevHash string, index int64, event types.AuditEvent) (string, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return hashBytes([]byte(prevHash), []byte(fmt.Sprintf("|%d|", index)), payload), nil
}

// DecodeRecord decrypts one persisted blob into its record
func DecodeRecord(ctx context.Context, dec interfaces.Encryptor, blob []byte) (types.AuditRecord, error) {
	var rec types.AuditRecord
	plaintext, err := dec.Decrypt(ctx, blob)
	if err != nil {
		return rec, fmt.Errorf("decrypt audit record: %w", err)
	}
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return rec, fmt.Errorf("decode audit record: %w", err)
	}
	return rec, nil
}

// ReadTrail decrypts every record held by reader, in append order
func ReadTrail(ctx context.Context, dec interfaces.Encryptor, reader interfaces.LogReader) ([]types.AuditRecord, error) {
	blobs, err := reader.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read audit trail: %w", err)
	}
	records := make([]types.AuditRecord, 0, len(blobs))
	for i, blob := range blobs {
		rec, err := DecodeRecord(ctx, dec, blob)
		if err != nil {
			return records, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// VerifyChain recomputes every hash and checks each record links to the one
// before it. A record with index 1 and no previous hash starts a new segment.
func VerifyChain(records []types.AuditRecord) types.ChainReport {
	report := types.ChainReport{OK: true}
	var expectedPrev string
	var expectedIndex int64

	fail := func(index int64, msg string) {
		if report.OK {
			report.BrokenIndex = index
		}
		report.OK = false
		report.Errors = append(report.Errors, msg)
	}

	for _, rec := range records {
		if rec.Index == 1 && rec.PrevHash == "" {
			expectedIndex = 0
			expectedPrev = ""
		}
		expectedIndex++
		if rec.Index != expectedIndex {
			fail(rec.Index, fmt.Sprintf("index mismatch at %d: expected %d", rec.Index, expectedIndex))
		}
		if rec.PrevHash != expectedPrev {
			fail(rec.Index, fmt.Sprintf("prev_hash mismatch at %d", rec.Index))
		}
		computed, err := chainHash(rec.PrevHash, rec.Index, rec.Event)
		if err != nil {
			fail(rec.Index, fmt.Sprintf("encode event at %d: %v", rec.Index, err))
			continue
		}
		if computed != rec.Hash {
			fail(rec.Index, fmt.Sprintf("hash mismatch at %d", rec.Index))
		}
		expectedPrev = rec.Hash
		expectedIndex = rec.Index
		report.Total++
		report.LastIndex = rec.Index
		report.LastHash = rec.Hash
	}
	return report
}

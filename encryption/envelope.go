package encryption

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// lengthPrefixSize is the size of the big-endian metadata length header
const lengthPrefixSize = 4

// EncryptWithMetadata seals metadata and payload together. The plaintext layout
// is a 4 byte big-endian metadata length, the metadata JSON, then the payload.
func (s *Service) EncryptWithMetadata(ctx context.Context, payload []byte, metadata types.EnvelopeMetadata) ([]byte, error) {
	header, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope metadata: %w", err)
	}
	if uint64(len(header)) > math.MaxUint32 {
		return nil, fmt.Errorf("envelope metadata too large: %d bytes", len(header))
	}

	buf := make([]byte, lengthPrefixSize, lengthPrefixSize+len(header)+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(header)))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	defer wipe(buf)

	return s.Encrypt(ctx, buf)
}

// DecryptWithMetadata reverses EncryptWithMetadata
func (s *Service) DecryptWithMetadata(ctx context.Context, ciphertext []byte) (types.EnvelopeMetadata, []byte, error) {
	var metadata types.EnvelopeMetadata

	plaintext, err := s.Decrypt(ctx, ciphertext)
	if err != nil {
		return metadata, nil, err
	}
	if len(plaintext) < lengthPrefixSize {
		return metadata, nil, fmt.Errorf("%w: envelope shorter than length prefix", ErrMalformed)
	}
	n := uint64(binary.BigEndian.Uint32(plaintext[:lengthPrefixSize]))
	if n > uint64(len(plaintext)-lengthPrefixSize) {
		return metadata, nil, fmt.Errorf("%w: metadata length %d exceeds envelope size %d", ErrMalformed, n, len(plaintext)-lengthPrefixSize)
	}

	body := plaintext[lengthPrefixSize:]
	if err := json.Unmarshal(body[:n], &metadata); err != nil {
		return metadata, nil, fmt.Errorf("%w: envelope metadata: %v", ErrMalformed, err)
	}
	return metadata, body[n:], nil
}

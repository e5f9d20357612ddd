// Package repository holds what the storage drivers of the domain collection share.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lllypuk/collabfront/internal/domain/record"
)

// DefaultKey is the storage key the collection lives under unless configured otherwise.
const DefaultKey = "domains"

// ErrCorrupt is wrapped by Load when persisted data cannot be decoded.
var ErrCorrupt = errors.New("persisted domain collection is corrupt")

// Encode serializes the collection as a JSON array. A nil slice encodes as [].
func Encode(domains []record.Domain) ([]byte, error) {
	if domains == nil {
		domains = []record.Domain{}
	}
	data, err := json.Marshal(domains)
	if err != nil {
		return nil, fmt.Errorf("failed to encode domains: %w", err)
	}
	return data, nil
}

// Decode parses a JSON array of records. Anything else is reported as ErrCorrupt.
func Decode(data []byte) ([]record.Domain, error) {
	var domains []record.Domain
	if err := json.Unmarshal(data, &domains); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if domains == nil {
		return nil, fmt.Errorf("%w: not an array", ErrCorrupt)
	}
	return domains, nil
}

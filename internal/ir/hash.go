package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainEvent prefixes event hashes. The version suffix allows a future
// algorithm change without colliding with existing ids.
const DomainEvent = "gavel/event/v1"

// hashWithDomain computes SHA256(domain || 0x00 || data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed id of an event. The ID field itself
// is ignored, so EventID(e) is stable whether or not e.ID is already set.
func EventID(e Event) (string, error) {
	canonical, err := MarshalCanonical(e.Object())
	if err != nil {
		return "", fmt.Errorf("event id: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// Seal returns e with its ID filled in.
func Seal(e Event) (Event, error) {
	id, err := EventID(e)
	if err != nil {
		return Event{}, err
	}
	e.ID = id
	return e, nil
}

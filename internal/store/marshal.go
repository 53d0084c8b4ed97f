package store

import (
	"errors"
	"fmt"

	"github.com/roach88/gavel/internal/ir"
)

// ErrTampered is returned when a stored row no longer matches its content id.
var ErrTampered = errors.New("stored event does not match its id")

// marshalEvent converts an event to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so the stored form hashes to the event id.
func marshalEvent(ev ir.Event) (string, error) {
	data, err := ir.MarshalCanonical(ev.Object())
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}
	return string(data), nil
}

// verifyEvent checks a row read back from the events table: the columns must
// re-encode to the stored canonical text, and that text must hash to the id.
func verifyEvent(ev ir.Event, canonical string) error {
	encoded, err := marshalEvent(ev)
	if err != nil {
		return err
	}
	if encoded != canonical {
		return fmt.Errorf("%w: seq %d columns disagree with canonical form", ErrTampered, ev.Seq)
	}
	id, err := ir.EventID(ev)
	if err != nil {
		return err
	}
	if id != ev.ID {
		return fmt.Errorf("%w: seq %d has id %s, content hashes to %s", ErrTampered, ev.Seq, ev.ID, id)
	}
	return nil
}

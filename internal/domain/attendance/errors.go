package attendance

import (
	"errors"
	"fmt"

	"github.com/okian/rollcall/internal/domain/model"
)

var (
	// ErrDeliveryFailure marks an accepted attendance that the persistence
	// collaborator did not store.
	ErrDeliveryFailure = errors.New("attendance delivery failed")
	// ErrPendingFull is returned by a pending queue that cannot take more events.
	ErrPendingFull = errors.New("pending delivery queue is full")
)

// DeliveryError carries the event that could not be delivered.
type DeliveryError struct {
	Event  model.AttendanceEvent
	Parked bool // event waits in the pending queue for Redeliver
	Err    error
}

func (e *DeliveryError) Error() string {
	state := "dropped"
	if e.Parked {
		state = "parked"
	}
	return fmt.Sprintf("attendance %s for identity %d %s: %v", e.Event.ID, e.Event.InternalID, state, e.Err)
}

// Unwrap exposes both ErrDeliveryFailure and the collaborator's error.
func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailure, e.Err}
}

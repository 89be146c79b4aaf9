package queue

import (
	"errors"
	"fmt"

	"github.com/okian/rollcall/internal/domain/attendance"
)

// Sentinel kinds for queue errors.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = fmt.Errorf("queue: %w", attendance.ErrPendingFull)
)

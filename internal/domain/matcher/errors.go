package matcher

import "errors"

// Sentinel kinds for matcher errors.
var (
	ErrUnknownKind = errors.New("unknown matcher kind")
)

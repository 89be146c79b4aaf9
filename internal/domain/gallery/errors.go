package gallery

import "errors"

// Sentinel kinds for gallery errors.
var (
	ErrDuplicateExternalID = errors.New("external id already enrolled")
	ErrInvalidEnrollment   = errors.New("invalid enrollment")
	ErrPersist             = errors.New("gallery persistence failed")
	ErrCorruptStore        = errors.New("persisted gallery is inconsistent")
)

package loadgen

// Login status values returned by the server.
const (
	StatusAccepted   = "accepted"
	StatusSuppressed = "suppressed"
	StatusUnmatched  = "unmatched"
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
)

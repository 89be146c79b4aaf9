package api

// Request body sizing for routes that carry a feature vector.
const (
	// bytesPerComponent covers a full-precision float64 in JSON plus its separator.
	bytesPerComponent = 32
	// bodyOverhead covers the non-vector fields of a request.
	bodyOverhead = 4 << 10
	// defaultMaxBodyBytes applies when no dimension is configured.
	defaultMaxBodyBytes = 1 << 20
)

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithMaxBodyBytes caps the size of POST bodies. Non-positive values keep the default.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// BodyLimitForDimension returns a body cap large enough for one vector of dim components.
func BodyLimitForDimension(dim int) int64 {
	if dim <= 0 {
		return defaultMaxBodyBytes
	}
	return int64(dim)*bytesPerComponent + bodyOverhead
}

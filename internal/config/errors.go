package config

import "errors"

var (
	// ErrInvalidConfig reports a setting outside its allowed range.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig reports a file, env or decode failure while loading.
	ErrLoadConfig = errors.New("load config failed")
)

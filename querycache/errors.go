package querycache

import "errors"

var (
	// ErrInvalidTarget is returned when a reflective call target is not
	// callable with the given arguments or has an unsupported signature.
	ErrInvalidTarget = errors.New("querycache: invalid call target")

	// ErrInvalidResultType is returned when a call result cannot be
	// assigned to the requested type.
	ErrInvalidResultType = errors.New("querycache: invalid result type")

	// ErrUnsupportedConfigFormat is returned by LoadConfig for files that
	// are neither TOML nor YAML.
	ErrUnsupportedConfigFormat = errors.New("querycache: unsupported config format")
)

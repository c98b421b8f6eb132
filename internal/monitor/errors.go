package monitor

import "errors"

// Domain errors for the monitor package.
var (
	// ErrTopicRequired is returned when a history query names no topic.
	ErrTopicRequired = errors.New("monitor: topic is required")

	// ErrInvalidRetention is returned when pruning with a non-positive window.
	ErrInvalidRetention = errors.New("monitor: retention must be positive")
)

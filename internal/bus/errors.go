package bus

import (
	"errors"
	"fmt"
)

// Domain errors for the bus package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, bus.ErrTopicNotFound) {
//	    // handle not found case
//	}
var (
	// ErrTopicNotFound is returned when a lookup matches no registered topic.
	ErrTopicNotFound = errors.New("bus: topic not found")

	// ErrDuplicateTopic is returned when a topic name is declared twice.
	ErrDuplicateTopic = errors.New("bus: topic already defined")

	// ErrInvalidTopicName is returned for empty or malformed name components.
	ErrInvalidTopicName = errors.New("bus: invalid topic name")

	// ErrInvalidDepth is returned when a subscriber queue depth is below one.
	ErrInvalidDepth = errors.New("bus: invalid queue depth")

	// ErrInvalidMode is returned for an unknown delivery mode.
	ErrInvalidMode = errors.New("bus: invalid publish mode")

	// ErrSealed is returned when declaring on a builder that was already built.
	ErrSealed = errors.New("bus: builder already sealed")

	// ErrConfigurationCorruption reports a broken structural invariant.
	// It can only come from a broken build, never from runtime input, and
	// is raised as a panic on the publish and dispatch paths.
	ErrConfigurationCorruption = errors.New("bus: configuration corruption")
)

// corruption panics with an error wrapping ErrConfigurationCorruption.
func corruption(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrConfigurationCorruption, fmt.Sprintf(format, args...)))
}

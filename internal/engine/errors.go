package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalid marks input rejected by validation.
	ErrInvalid = errors.New("invalid input")
	// ErrGenerationFailed wraps any storage failure during schedule generation.
	ErrGenerationFailed = errors.New("schedule generation failed")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// BlacklistedPairError reports a manual pair that is on the blacklist.
type BlacklistedPairError struct {
	AgentA, AgentB int64
}

func (e BlacklistedPairError) Error() string {
	return fmt.Sprintf("agents %d and %d are blacklisted", e.AgentA, e.AgentB)
}

func (e BlacklistedPairError) Is(target error) bool { return target == ErrInvalid }

// UnknownAgentsError reports agent ids that do not exist.
type UnknownAgentsError struct {
	IDs []int64
}

func (e UnknownAgentsError) Error() string {
	return fmt.Sprintf("unknown agents %v", e.IDs)
}

func (e UnknownAgentsError) Is(target error) bool { return target == ErrInvalid }

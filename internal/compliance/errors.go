package compliance

import "errors"

var (
	// ErrInvalidArgument is returned for out-of-range or malformed input
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSelfApproval is returned when an assessor tries to approve their own assessment
	ErrSelfApproval = errors.New("assessor cannot approve own assessment")
	// ErrNotAssessed is returned when approving a topic that has not been scored yet
	ErrNotAssessed = errors.New("topic has not been assessed")
	// ErrNoData is returned by mutating operations that need inventory data which does not exist
	ErrNoData = errors.New("no inventory data")
)

package passcode

import "errors"

// Validation errors reported at generation time. Verification never returns
// an error: a code that cannot be reproduced simply does not match.
var (
	ErrSecretTooShort  = errors.New("passcode: admin secret must be at least 4 digits")
	ErrCountOutOfRange = errors.New("passcode: use count must be between 1 and 31")
	ErrHoursOutOfRange = errors.New("passcode: hours must not exceed 127")
	ErrInvalidMinutes  = errors.New("passcode: minutes must be 0 or 30")
	ErrInvalidDate     = errors.New("passcode: invalid calendar date")
	ErrEndNotInFuture  = errors.New("passcode: end time must be in the future")
	ErrEndOutOfRange   = errors.New("passcode: end time beyond supported range")
	ErrUnknownScheme   = errors.New("passcode: unknown scheme")
)

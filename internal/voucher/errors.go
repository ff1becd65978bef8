package voucher

import "errors"

var (
	// ErrInvalidNumber is returned for a caller supplied number that does not
	// follow the year-prefixed scheme
	ErrInvalidNumber = errors.New("invalid voucher number")

	// ErrInvalidDate is returned when a date cannot be parsed
	ErrInvalidDate = errors.New("invalid date")
)

package voucher

import (
	"fmt"
	"strconv"
	"strings"
)

// MinSuffixDigits is the minimum width of the sequence part of a voucher number
const MinSuffixDigits = 2

// NextNumber returns the next free number for vouchers purchased in year.
// The sequence continues after the highest suffix among existing numbers
// carrying the year prefix; unparsable or empty suffixes count as zero.
func NextNumber(existing []string, year int) string {
	prefix := strconv.Itoa(year)

	highest := uint64(0)
	for _, number := range existing {
		if !strings.HasPrefix(number, prefix) {
			continue
		}
		if seq := parseSuffix(number[len(prefix):]); seq > highest {
			highest = seq
		}
	}

	return fmt.Sprintf("%s%0*d", prefix, MinSuffixDigits, highest+1)
}

func parseSuffix(suffix string) uint64 {
	seq, err := strconv.ParseUint(suffix, 10, 31)
	if err != nil {
		return 0
	}
	return seq
}

// ValidateNumber checks a caller supplied number against the purchase year.
// It does not look at stored vouchers; uniqueness is checked separately.
func ValidateNumber(number string, year int) error {
	prefix := strconv.Itoa(year)
	if strings.TrimSpace(number) == "" || !strings.HasPrefix(number, prefix) {
		return fmt.Errorf("%w: %q does not start with %s", ErrInvalidNumber, number, prefix)
	}

	suffix := number[len(prefix):]
	if len(suffix) < MinSuffixDigits {
		return fmt.Errorf("%w: %q needs at least %d sequence digits", ErrInvalidNumber, number, MinSuffixDigits)
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: %q has a non-digit sequence", ErrInvalidNumber, number)
		}
	}

	return nil
}

// Contains reports an exact, case-sensitive match
func Contains(existing []string, number string) bool {
	for _, n := range existing {
		if n == number {
			return true
		}
	}
	return false
}

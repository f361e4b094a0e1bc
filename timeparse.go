package feedload

import (
	"fmt"
	"regexp"
	"strconv"
)

var timePattern = regexp.MustCompile(`^([0-9][0-9]):([0-9][0-9]):([0-9][0-9])$`)

// ParseTime parses an hh:mm:ss string into minutes since midnight. Seconds
// are dropped. Hours past 23 are accepted as-is, so trips running after
// midnight keep increasing times.
func ParseTime(s string) (int, error) {
	if len(s) != 8 {
		return 0, fmt.Errorf("%w: bad time string %q", ErrMalformedTime, s)
	}
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: bad time string %q", ErrMalformedTime, s)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return hours*60 + minutes, nil
}

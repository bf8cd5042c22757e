package lss

import (
	"regexp"
	"strconv"
)

var sizeStringPattern = regexp.MustCompile(`^([0-9]+) ?([kKmMgGtTpP])B?$`)

var sizeExponent = map[byte]uint{
	'k': 1, 'K': 1,
	'm': 2, 'M': 2,
	'g': 3, 'G': 3,
	't': 4, 'T': 4,
	'p': 5, 'P': 5,
}

// ParseSize parses a human size string of the form "<digits> ?[kKmMgGtTpP]B?"
// into bytes, per §6. Any string not matching the pattern yields 0.
func ParseSize(s string) int64 {
	m := sizeStringPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	exp := sizeExponent[m[2][0]]
	return n * (1 << (10 * exp))
}

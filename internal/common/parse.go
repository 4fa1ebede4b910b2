package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseBlockNumber converts a decimal or 0x-prefixed hexadecimal string into a block number.
func ParseBlockNumber(val string) (uint64, error) {
	str := strings.TrimSpace(val)
	base := 10

	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		str = str[2:]
		base = 16
	}

	n, err := strconv.ParseUint(str, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid block number %q: %w", val, err)
	}

	return n, nil
}

// ParseBlockRange parses "from", "from:" or "from:to" into an inclusive range.
// An open upper end is returned as math.MaxUint64.
func ParseBlockRange(val string) (uint64, uint64, error) {
	fromStr, toStr, hasTo := strings.Cut(strings.TrimSpace(val), ":")

	from, err := ParseBlockNumber(fromStr)
	if err != nil {
		return 0, 0, err
	}

	if !hasTo || strings.TrimSpace(toStr) == "" {
		return from, math.MaxUint64, nil
	}

	to, err := ParseBlockNumber(toStr)
	if err != nil {
		return 0, 0, err
	}

	if to < from {
		return 0, 0, fmt.Errorf("invalid block range %q: end %d is below start %d", val, to, from)
	}

	return from, to, nil
}

func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

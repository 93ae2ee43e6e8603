package lastresults

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidNumber is returned for malformed result selections.
var ErrInvalidNumber = errors.New("invalid result number")

// maxRangeSize limits ranges such as "1-100000" typed by accident.
const maxRangeSize = 1000

// ParseNumbers parses result numbers in the forms "1", "1,3,5", "1-5" and
// "1,3-5,7". Spaces separate like commas. Duplicates are dropped and the
// numbers stay 1-indexed.
func ParseNumbers(input string) ([]int, error) {
	input = strings.ReplaceAll(strings.TrimSpace(input), " ", ",")
	if input == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidNumber)
	}

	var result []int
	seen := make(map[int]bool)
	add := func(n int) {
		if !seen[n] {
			seen[n] = true
			result = append(result, n)
		}
	}

	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "-") {
			start, end, err := parseRange(part)
			if err != nil {
				return nil, err
			}
			for n := start; n <= end; n++ {
				add(n)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a valid number", ErrInvalidNumber, part)
		}
		if n < 1 {
			return nil, fmt.Errorf("%w: %d must be positive", ErrInvalidNumber, n)
		}
		add(n)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no valid numbers found", ErrInvalidNumber)
	}
	return result, nil
}

// ParseNumberArgs joins command arguments with commas and parses them, so
// "1" "3-4" reads like "1,3-4".
func ParseNumberArgs(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no numbers provided", ErrInvalidNumber)
	}
	return ParseNumbers(strings.Join(args, ","))
}

func parseRange(s string) (int, int, error) {
	lo, hi, _ := strings.Cut(s, "-")
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid range start %q", ErrInvalidNumber, lo)
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid range end %q", ErrInvalidNumber, hi)
	}
	if start < 1 {
		return 0, 0, fmt.Errorf("%w: range start %d must be positive", ErrInvalidNumber, start)
	}
	if end < start {
		return 0, 0, fmt.Errorf("%w: range end %d must be >= start %d", ErrInvalidNumber, end, start)
	}
	if end-start+1 > maxRangeSize {
		return 0, 0, fmt.Errorf("%w: range %d-%d is too large (max %d)", ErrInvalidNumber, start, end, maxRangeSize)
	}
	return start, end, nil
}

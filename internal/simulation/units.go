package simulation

import (
	"fmt"
	"strings"
)

// ConvertToSeconds converts a duration given in unit to seconds.
func ConvertToSeconds(value float64, unit string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "ms":
		return value / 1000, nil
	case "", "s", "sec":
		return value, nil
	case "min", "m":
		return value * 60, nil
	case "h":
		return value * 3600, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, unit)
}

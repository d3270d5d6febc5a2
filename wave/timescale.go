package wave

import (
	"fmt"
)

var units = []struct {
	exp  int
	name string
}{
	{0, "s"}, {-3, "ms"}, {-6, "us"}, {-9, "ns"}, {-12, "ps"}, {-15, "fs"},
}

// Timescale returns the VCD timescale for a time unit of 10^precision
// seconds, e.g. "1ps" for -12 and "100ns" for -7.
func Timescale(precision int) (string, error) {
	for _, u := range units {
		if d := precision - u.exp; d >= 0 && d <= 2 {
			mult := 1
			for ; d > 0; d-- {
				mult *= 10
			}
			return fmt.Sprintf("%d%s", mult, u.name), nil
		}
	}
	return "", fmt.Errorf("precision 1e%d s has no VCD timescale", precision)
}

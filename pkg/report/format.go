package report

import (
	"fmt"
	"math"
)

// na is the literal token for an absent cell.
const na = "NA"

// fmtDefault formats a present value with three decimals, the default rule
// for most cells.
func fmtDefault(v float64, present bool) string {
	if !present {
		return na
	}
	return fmt.Sprintf("%.3f", v)
}

// fmtStdDev applies the six-decimal exception for stddev cells whose
// magnitude falls strictly within (0, 1e-3); otherwise the default three
// decimals.
func fmtStdDev(v float64, present bool) string {
	if !present {
		return na
	}
	if v > 0 && v < 1e-3 {
		return fmt.Sprintf("%.6f", v)
	}
	return fmt.Sprintf("%.3f", v)
}

// fmtSCK formats spi_sck_MHz with two decimals.
func fmtSCK(v float64, present bool) string {
	if !present {
		return na
	}
	return fmt.Sprintf("%.2f", v)
}

// fmtInt formats an integer-valued cell (capacity_mbit, capacity_bytes)
// with no decimals.
func fmtInt(v float64, present bool) string {
	if !present {
		return na
	}
	return fmt.Sprintf("%d", int64(math.Round(v)))
}

// fmtCount formats a sample count.
func fmtCount(n int, present bool) string {
	if !present {
		return na
	}
	return fmt.Sprintf("%d", n)
}

// fmtList renders a slash-separated candidate list, or NA if empty.
func fmtList(items []string) string {
	if len(items) == 0 {
		return na
	}
	out := items[0]
	for _, it := range items[1:] {
		out += "/" + it
	}
	return out
}

// fmtString renders a text cell verbatim, or NA if empty.
func fmtString(s string) string {
	if s == "" {
		return na
	}
	return s
}

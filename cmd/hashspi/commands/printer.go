package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ardnew/hashspi/driver"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// Success prints a message in green with a checkmark prefix.
func Success(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Info prints an informational message in the default color.
func Info(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, format+"\n", a...)
}

// Warning prints a message in yellow with a warning prefix.
func Warning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "⚠️  %s\n", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with title, explanation and suggestions
// and returns a plain error for cobra, which stays silent about it.
func Error(w io.Writer, title string, explanation string, suggestions []string) error {
	red.Fprintf(w, "%s\n\n", title)
	fmt.Fprintf(w, "%s\n", explanation)

	if len(suggestions) > 0 {
		fmt.Fprintf(w, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(w, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(w, "Either:\n")
			for i, s := range suggestions {
				fmt.Fprintf(w, "  %d. %s\n", i+1, s)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// hashrate estimates hashes per second from accepted nonces. Every nonce
// is a difficulty-1 share, worth 2^32 hashes on average.
func hashrate(accepted uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(accepted) * (1 << 32) / elapsed.Seconds()
}

// formatRate renders a hash rate with an SI prefix.
func formatRate(h float64) string {
	units := []string{"H/s", "kH/s", "MH/s", "GH/s", "TH/s", "PH/s"}
	i := 0
	for h >= 1000 && i < len(units)-1 {
		h /= 1000
		i++
	}
	return fmt.Sprintf("%.2f %s", h, units[i])
}

// printStats renders one report of the driver. accepted is the number of
// valid nonces found in the last interval.
func printStats(w io.Writer, s driver.Stats, accepted uint64, interval time.Duration) {
	cyan.Fprintf(w, "── %s  %s  (%d accepted in %s)\n",
		time.Now().Format(time.TimeOnly), formatRate(hashrate(accepted, interval)),
		accepted, interval.Round(time.Millisecond))

	fmt.Fprintf(w, "%-5s %-6s %-5s %-9s %-9s %-7s %-8s %-8s %-7s %-5s\n",
		"CHIP", "CORES", "OCC", "DISPATCH", "GOOD", "HW", "NONONCE", "BADWORK", "TXERR", "TEMP")
	for _, c := range s.Chips {
		hw := fmt.Sprintf("%-7d", c.Bad)
		if c.Bad > 0 {
			hw = yellow.Sprint(hw)
		}
		txerr := fmt.Sprintf("%-7d", c.TxErrors)
		if c.TxErrors > 0 {
			txerr = red.Sprint(txerr)
		}
		temp := "-"
		if !c.Telemetry.Updated.IsZero() {
			temp = fmt.Sprintf("%dC", c.Telemetry.Status.Temp)
		}
		fmt.Fprintf(w, "%-5d %-6d %-5s %-9d %-9s %s %-8d %-8d %s %-5s\n",
			c.Chip, c.Cores, occupancy(c), c.Dispatched,
			green.Sprintf("%-9d", c.Good), hw, c.NoNonce, c.BadWork, txerr, temp)
	}

	pools := make([]string, 0, len(s.Pools))
	for _, p := range s.Pools {
		pools = append(pools, fmt.Sprintf("%s %d/%d", p.Name, p.InUse(), p.Size))
	}
	faint.Fprintf(w, "pending %d  txq %d  replies %d  accepted %d  oversize %d  pools [%s]\n",
		s.Pending, s.TxQueue, s.Replies, s.Accepted, s.Oversize, strings.Join(pools, ", "))
}

func occupancy(c driver.ChipStats) string {
	if c.Stale > 0 {
		return fmt.Sprintf("%d+%d", c.Occupancy, c.Stale)
	}
	return fmt.Sprintf("%d", c.Occupancy)
}

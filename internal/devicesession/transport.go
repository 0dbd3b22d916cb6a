package devicesession

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"
)

// shellTransport is the minimal interface both the SSH and Telnet
// transports expose to Session: a byte stream that behaves like an
// interactive CLI shell (commands in, prompt-delimited output out).
type shellTransport interface {
	io.Writer
	// ReadAvailable performs one non-blocking-ish read: it waits up to
	// deadline for data and returns whatever arrived (possibly
	// nothing, which is not an error — it signals "device went quiet").
	ReadAvailable(deadline time.Time) ([]byte, error)
	Close() error
}

// Read-loop tuning (spec.md §4.2). baseDelay is one poll interval;
// normal commands poll up to 2x the base iteration count, "show
// running-config" (and any show running-config* variant) up to 4x,
// capped at 2000 iterations total to bound worst-case wait time.
const (
	baseDelay           = 150 * time.Millisecond
	baseIterations      = 500
	normalMultiplier    = 2
	extendedMultiplier  = 4
	maxReadIterations   = 2000
	quietRoundsToSettle = 3 // consecutive empty reads considered "done"
)

// readUntilQuiet drains t until the device stops producing output for
// quietRoundsToSettle consecutive polls, or the iteration budget for
// this command class is exhausted. It never blocks past ctx's
// deadline even if the budget would allow more iterations.
func readUntilQuiet(ctx context.Context, t shellTransport, extended bool) (string, error) {
	multiplier := normalMultiplier
	if extended {
		multiplier = extendedMultiplier
	}
	iterations := baseIterations * multiplier
	if iterations > maxReadIterations {
		iterations = maxReadIterations
	}

	var buf bytes.Buffer
	quiet := 0
	for i := 0; i < iterations; i++ {
		select {
		case <-ctx.Done():
			return buf.String(), ctx.Err()
		default:
		}

		deadline := time.Now().Add(baseDelay)
		chunk, err := t.ReadAvailable(deadline)
		if err != nil {
			return buf.String(), err
		}
		if len(chunk) == 0 {
			quiet++
			if quiet >= quietRoundsToSettle && buf.Len() > 0 {
				break
			}
			continue
		}
		quiet = 0
		buf.Write(chunk)
	}
	return stripPagerArtifacts(buf.String()), nil
}

// pagerReplacer removes the handful of pager markers that slip through
// even with pagination disabled (spec.md §4.2: "need not implement
// advanced pager handling"). This is a best-effort cleanup, not a full
// terminal emulator.
var pagerReplacer = strings.NewReplacer(
	"--More--", "",
	"\x1b[K", "", // erase-to-end-of-line
	"\r\r\n", "\r\n",
)

func stripPagerArtifacts(s string) string {
	return pagerReplacer.Replace(s)
}

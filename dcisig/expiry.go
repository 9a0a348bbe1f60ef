package dcisig

import (
	"fmt"
	"net/http"
	"time"
)

// DefaultExpiryWindow is the accepted distance between the request
// timestamp and the current time, in either direction.
const DefaultExpiryWindow = 24 * time.Hour

// ExpiryChecker rejects requests whose date header is too far from now.
// The zero value uses SystemClock and DefaultExpiryWindow.
type ExpiryChecker struct {
	Clock  Clock
	Window time.Duration
}

// IsExpired reports whether headers are expired using the system clock and
// the default window. A missing or unparsable date counts as expired.
func IsExpired(headers http.Header) bool {
	return ExpiryChecker{}.IsExpired(headers)
}

// IsExpired reports whether Check fails.
func (c ExpiryChecker) IsExpired(headers http.Header) bool {
	return c.Check(headers) != nil
}

// Check reads X-Amz-Date, then X-DCI-Date, and returns ErrMissingDate,
// ErrMalformedDate or ErrExpired when the request must be rejected. A
// timestamp exactly one window away is still accepted.
func (c ExpiryChecker) Check(headers http.Header) error {
	ts, err := SignedAt(headers)
	if err != nil {
		return err
	}

	window := c.Window
	if window <= 0 {
		window = DefaultExpiryWindow
	}

	skew := clockOrDefault(c.Clock).Now().Sub(ts)
	if skew < 0 {
		skew = -skew
	}

	if skew > window {
		return fmt.Errorf("%w: %s outside %s window", ErrExpired, ts.Format(TimeFormat), window)
	}

	return nil
}

// SignedAt returns the instant claimed by the date header.
func SignedAt(headers http.Header) (time.Time, error) {
	raw, ok := claimedTimestamp(lowerHeaders(headers))
	if !ok {
		return time.Time{}, ErrMissingDate
	}

	ts, err := time.Parse(TimeFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}

	return ts, nil
}

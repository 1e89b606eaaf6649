// Package widgets implements the optimistic toggle pattern shared by voting,
// bookmarking, following, and community membership: flip local state
// immediately, issue the request, revert on failure. A control is disabled
// while its request is in flight so out-of-order responses cannot lose
// updates.
package widgets

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOperationInFlight rejects a toggle while the previous request for
	// the same item has not resolved.
	ErrOperationInFlight = errors.New("operation already in flight")
	// ErrSelfFollow rejects following oneself.
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// API is the slice of the REST client used by the widgets.
type API interface {
	Post(ctx context.Context, path string, body, out any) error
}

// FormatCount renders a counter the way the feed displays it: 1532 -> "1.5K",
// 2400000 -> "2.4M".
func FormatCount(count int) string {
	abs := count
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1000000:
		return fmt.Sprintf("%.1fM", float64(count)/1000000)
	case abs >= 1000:
		return fmt.Sprintf("%.1fK", float64(count)/1000)
	default:
		return fmt.Sprintf("%d", count)
	}
}

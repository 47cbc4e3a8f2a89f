package auth

import "time"

// WithinWindow reports whether t is at most window old at now.
// window uses time.ParseDuration syntax, e.g. "2h" or "90m".
func WithinWindow(t time.Time, window string, now time.Time) (bool, error) {
	d, err := time.ParseDuration(window)
	if err != nil {
		return false, err
	}
	return now.Sub(t) <= d, nil
}

// ResetExpired reports whether a reset mailed at sentAt can no longer
// be used, which is once more than window has passed. A reset that
// was never sent counts as expired.
func ResetExpired(sentAt *time.Time, window string, now time.Time) (bool, error) {
	if sentAt == nil {
		return true, nil
	}
	within, err := WithinWindow(*sentAt, window, now)
	if err != nil {
		return false, err
	}
	return !within, nil
}

package booking

import "time"

// WillExpireAt returns when a pending job stops being offered to translators.
// The gap between due and creation picks the tier, smallest first.
func WillExpireAt(due, createdAt time.Time) time.Time {
	d := due.Sub(createdAt)
	switch {
	case d <= 24*time.Hour:
		return createdAt.Add(90 * time.Minute)
	case d <= 72*time.Hour:
		return createdAt.Add(16 * time.Hour)
	case d <= 90*time.Hour:
		return due
	default:
		return due.Add(-48 * time.Hour)
	}
}

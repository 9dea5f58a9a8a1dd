package domain

import "github.com/cuongbtq/booking-dispatch/internal/booking"

// Task claim states kept in Redis
const (
	TaskStatusRunning   = "RUNNING"
	TaskStatusCompleted = "COMPLETED"
)

// Task kinds, one per booking.Notifier method
const (
	TaskSuitableJob     = booking.NotificationSuitableJob
	TaskJobAccepted     = booking.NotificationJobAccepted
	TaskJobCancelled    = booking.NotificationJobCancelled
	TaskSessionReminder = booking.NotificationSessionReminder
	TaskJobExpired      = booking.NotificationJobExpired
)

var knownKinds = map[string]struct{}{
	TaskSuitableJob:     {},
	TaskJobAccepted:     {},
	TaskJobCancelled:    {},
	TaskSessionReminder: {},
	TaskJobExpired:      {},
}

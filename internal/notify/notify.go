// Package notify holds what the push transports share: the app title shown
// on every notification and the per-platform sound names.
package notify

import "github.com/cuongbtq/booking-dispatch/internal/booking"

// Title is the notification heading on both platforms.
const Title = "DigitalTolk"

// Sounds maps a sound profile to the android and ios sound names.
func Sounds(s booking.Sound) (android, ios string) {
	switch s {
	case booking.SoundEmergency:
		return "emergency_booking", "emergency_booking.mp3"
	case booking.SoundNormal:
		return "normal_booking", "normal_booking.mp3"
	default:
		return "default", "default"
	}
}

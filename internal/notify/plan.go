package notify

import (
	"fmt"
	"time"

	"ppe-backend/internal/models"
)

// AttributionEvent describes a committed attribution.
type AttributionEvent struct {
	AttributionID      uint
	EmployeeID         uint
	EmployeeName       string
	RegistrationNumber string
	Material           string
	Category           string
	Remaining          int
}

// Plan turns an attribution into notification write intents: one success notice per recipient,
// then one critical stock notice per recipient when the remaining quantity is below threshold.
func Plan(recipients []models.User, ev AttributionEvent, threshold int, now time.Time) []models.Notification {
	critical := ev.Remaining < threshold

	size := len(recipients)
	if critical {
		size *= 2
	}
	out := make([]models.Notification, 0, size)

	success := fmt.Sprintf("An attribution was made for employee %s (%s) - Material: %s - Category: %s",
		ev.RegistrationNumber, ev.EmployeeName, ev.Material, ev.Category)
	for _, r := range recipients {
		out = append(out, models.Notification{
			RecipientID: r.ID,
			Type:        models.NotificationAttribution,
			Message:     success,
			SentAt:      now,
		})
	}

	if !critical {
		return out
	}

	low := fmt.Sprintf("Low stock for material: %s - Category: %s (remaining: %d units)",
		ev.Material, ev.Category, ev.Remaining)
	for _, r := range recipients {
		out = append(out, models.Notification{
			RecipientID: r.ID,
			Type:        models.NotificationCriticalStock,
			Message:     low,
			SentAt:      now,
		})
	}
	return out
}

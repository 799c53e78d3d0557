package appointment

import (
	"time"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

type AvailabilityInput struct {
	TenantID   string
	EmployeeID uint
	ServiceID  uint
	Date       time.Time
}

type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// FreeSlots walks the day in steps of duration and keeps slots that miss lunch
// and every busy appointment. busy must be sorted by start time.
func FreeSlots(b DayBounds, duration time.Duration, busy []models.Appointment, notBefore time.Time) []TimeSlot {
	slots := []TimeSlot{}
	if duration <= 0 {
		return slots
	}

	apIdx := 0
	for cur := b.Start; !cur.Add(duration).After(b.End); cur = cur.Add(duration) {
		slotStart := cur
		slotEnd := cur.Add(duration)

		if slotStart.Before(notBefore) {
			continue
		}

		if b.HasLunch && slotStart.Before(b.LunchEnd) && slotEnd.After(b.LunchStart) {
			continue
		}

		for apIdx < len(busy) && !busy[apIdx].EndTime.After(slotStart) {
			apIdx++
		}

		conflict := false
		for i := apIdx; i < len(busy) && busy[i].StartTime.Before(slotEnd); i++ {
			if slotStart.Before(busy[i].EndTime) && slotEnd.After(busy[i].StartTime) {
				conflict = true
				break
			}
		}

		if !conflict {
			slots = append(slots, TimeSlot{
				Start: slotStart.Format("15:04"),
				End:   slotEnd.Format("15:04"),
			})
		}
	}

	return slots
}

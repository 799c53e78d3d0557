package appointment

import (
	"time"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

// DayBounds places a working-hours row on the calendar day of ref.
type DayBounds struct {
	Start, End           time.Time
	LunchStart, LunchEnd time.Time
	HasLunch             bool
}

func Bounds(wh *models.WorkingHours, ref time.Time) (DayBounds, bool) {
	if wh == nil || !wh.Active || wh.StartTime == "" || wh.EndTime == "" {
		return DayBounds{}, false
	}

	loc := ref.Location()
	parseHM := func(hm string) time.Time {
		t, _ := time.Parse("15:04", hm)
		return time.Date(
			ref.Year(), ref.Month(), ref.Day(),
			t.Hour(), t.Minute(), 0, 0,
			loc,
		)
	}

	b := DayBounds{
		Start: parseHM(wh.StartTime),
		End:   parseHM(wh.EndTime),
	}
	if wh.LunchStart != "" && wh.LunchEnd != "" {
		b.HasLunch = true
		b.LunchStart = parseHM(wh.LunchStart)
		b.LunchEnd = parseHM(wh.LunchEnd)
	}
	return b, true
}

// IsWithinWorkingHours checks the slot against opening hours and lunch.
func IsWithinWorkingHours(wh *models.WorkingHours, start, end time.Time) bool {
	b, ok := Bounds(wh, start)
	if !ok {
		return false
	}

	if start.Before(b.Start) || end.After(b.End) {
		return false
	}

	if b.HasLunch && start.Before(b.LunchEnd) && end.After(b.LunchStart) {
		return false
	}

	return true
}

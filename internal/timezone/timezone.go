package timezone

import "time"

const DefaultTimezone = "Europe/Oslo"

func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

func Location(tz string) *time.Location {
	if IsValid(tz) {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}

	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Now() time.Time {
	return time.Now().In(Location(DefaultTimezone))
}

func NowIn(tz string) time.Time {
	return time.Now().In(Location(tz))
}

// ParseLocal reads a date (2006-01-02) and a clock time (15:04 or 15:04:05)
// in the given zone.
func ParseLocal(date, clock, tz string) (time.Time, error) {
	layout := "2006-01-02 15:04"
	if len(clock) == len("15:04:05") {
		layout = "2006-01-02 15:04:05"
	}
	return time.ParseInLocation(layout, date+" "+clock, Location(tz))
}

package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(monday.Year(), monday.Month(), monday.Day(), h, m, 0, 0, time.UTC)
}

func TestIsWithinWorkingHours(t *testing.T) {
	wh := &models.WorkingHours{
		Active: true, StartTime: "09:00", EndTime: "17:00",
		LunchStart: "12:00", LunchEnd: "12:30",
	}

	assert.True(t, IsWithinWorkingHours(wh, at(9, 0), at(9, 30)))
	assert.True(t, IsWithinWorkingHours(wh, at(16, 30), at(17, 0)))
	assert.False(t, IsWithinWorkingHours(wh, at(8, 30), at(9, 0)))
	assert.False(t, IsWithinWorkingHours(wh, at(16, 45), at(17, 15)))
	assert.False(t, IsWithinWorkingHours(wh, at(11, 45), at(12, 15)))
	assert.True(t, IsWithinWorkingHours(wh, at(12, 30), at(13, 0)))

	wh.Active = false
	assert.False(t, IsWithinWorkingHours(wh, at(10, 0), at(10, 30)))
	assert.False(t, IsWithinWorkingHours(nil, at(10, 0), at(10, 30)))
}

func TestFreeSlots(t *testing.T) {
	wh := &models.WorkingHours{
		Active: true, StartTime: "09:00", EndTime: "12:00",
		LunchStart: "10:00", LunchEnd: "10:30",
	}
	b, ok := Bounds(wh, monday)
	assert.True(t, ok)

	busy := []models.Appointment{
		{StartTime: at(9, 0), EndTime: at(9, 30)},
		{StartTime: at(11, 15), EndTime: at(11, 45)},
	}

	got := FreeSlots(b, 30*time.Minute, busy, time.Time{})
	assert.Equal(t, []TimeSlot{
		{Start: "09:30", End: "10:00"},
		{Start: "10:30", End: "11:00"},
	}, got)

	got = FreeSlots(b, 30*time.Minute, nil, at(10, 45))
	assert.Equal(t, []TimeSlot{
		{Start: "11:00", End: "11:30"},
		{Start: "11:30", End: "12:00"},
	}, got)

	assert.Empty(t, FreeSlots(b, 0, nil, time.Time{}))
}

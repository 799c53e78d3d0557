package appointment

import (
	"time"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

// Policy holds the tenant rules for customer self-service.
type Policy struct {
	CancellationWindow time.Duration
	MaxReschedules     int
}

// PolicyFor resolves tenant overrides on top of platform defaults.
func PolicyFor(t *models.Tenant, defaults Policy) Policy {
	p := defaults
	if t == nil {
		return p
	}
	if t.CancellationWindowHours > 0 {
		p.CancellationWindow = time.Duration(t.CancellationWindowHours) * time.Hour
	}
	if t.MaxReschedules > 0 {
		p.MaxReschedules = t.MaxReschedules
	}
	return p
}

// WithinWindow is true only with strictly more lead time than the window.
func (p Policy) WithinWindow(start, now time.Time) bool {
	return start.Sub(now) > p.CancellationWindow
}

type Permissions struct {
	CanCancel     bool
	CanReschedule bool
}

func (p Policy) Permissions(ap *models.Appointment, now time.Time) Permissions {
	if !Status(ap.Status).Active() || !p.WithinWindow(ap.StartTime, now) {
		return Permissions{}
	}
	return Permissions{
		CanCancel:     true,
		CanReschedule: p.MaxReschedules <= 0 || ap.RescheduleCount < p.MaxReschedules,
	}
}

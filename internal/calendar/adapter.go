// Package calendar mirrors bookings into employees' Google Calendars.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/BruksfildServices01/salon-platform/internal/obs"
	"github.com/BruksfildServices01/salon-platform/internal/timezone"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

const (
	emailReminderMinutes = 24 * 60
	popupReminderMinutes = 60
)

// Booking is what an event is built from.
type Booking struct {
	AppointmentID uint
	CustomerName  string
	EmployeeName  string
	SalonName     string
	ServiceName   string
	Start         time.Time
	End           time.Time
	Notes         string
	Timezone      string
	CalendarID    string
}

type Result struct {
	Success bool
	EventID string
	Error   string
}

type Adapter struct {
	endpoint string
	base     http.RoundTripper
	log      logrus.FieldLogger
}

type AdapterOption func(*Adapter)

// WithEndpoint points the adapter at another Calendar API base URL.
func WithEndpoint(url string) AdapterOption {
	return func(a *Adapter) { a.endpoint = url }
}

func WithTransport(rt http.RoundTripper) AdapterOption {
	return func(a *Adapter) { a.base = rt }
}

func NewAdapter(log logrus.FieldLogger, opts ...AdapterOption) *Adapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	a := &Adapter{
		base: http.DefaultTransport,
		log:  log.WithField("component", "calendar"),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Sync applies action for b using accessToken. It never returns an error;
// failures come back as Result.Success == false.
func (a *Adapter) Sync(ctx context.Context, b Booking, action Action, accessToken, existingEventID string) Result {
	res := a.sync(ctx, b, action, accessToken, existingEventID)

	result := "success"
	if !res.Success {
		result = "failure"
	}
	obs.CalendarSyncs.WithLabelValues(string(action), result).Inc()

	log := a.log.WithFields(logrus.Fields{
		"appointment_id": b.AppointmentID,
		"action":         action,
	})
	if res.Success {
		log.WithField("event_id", res.EventID).Info("calendar synced")
	} else {
		log.WithField("error", res.Error).Warn("calendar sync failed")
	}
	return res
}

func (a *Adapter) sync(ctx context.Context, b Booking, action Action, accessToken, eventID string) Result {
	if accessToken == "" {
		return Result{Error: "no_access_token"}
	}

	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return Result{Error: err.Error()}
	}

	calendarID := b.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	switch action {
	case ActionCreate:
		ev, err := svc.Events.Insert(calendarID, buildEvent(b)).Context(ctx).Do()
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, EventID: ev.Id}

	case ActionUpdate:
		if eventID == "" {
			return Result{Error: "missing_event_id"}
		}
		ev, err := svc.Events.Patch(calendarID, eventID, buildEvent(b)).Context(ctx).Do()
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, EventID: ev.Id}

	case ActionDelete:
		if eventID == "" {
			return Result{Error: "missing_event_id"}
		}
		err := svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
		if err != nil && !gone(err) {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, EventID: eventID}
	}

	return Result{Error: fmt.Sprintf("unknown_action %q", action)}
}

func (a *Adapter) service(ctx context.Context, accessToken string) (*gcal.Service, error) {
	client := &http.Client{
		Timeout: 15 * time.Second,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
			Base:   a.base,
		},
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if a.endpoint != "" {
		opts = append(opts, option.WithEndpoint(a.endpoint))
	}
	return gcal.NewService(ctx, opts...)
}

func buildEvent(b Booking) *gcal.Event {
	tz := b.Timezone
	if tz == "" {
		tz = timezone.DefaultTimezone
	}
	loc := timezone.Location(tz)

	var desc strings.Builder
	fmt.Fprintf(&desc, "Booking hos %s\n\nTjeneste: %s\nAnsatt: %s\nKunde: %s", b.SalonName, b.ServiceName, b.EmployeeName, b.CustomerName)
	if b.Notes != "" {
		desc.WriteString("\n\n" + b.Notes)
	}

	return &gcal.Event{
		Summary:     fmt.Sprintf("%s - %s", b.ServiceName, b.SalonName),
		Description: desc.String(),
		Location:    b.SalonName,
		Start: &gcal.EventDateTime{
			DateTime: b.Start.In(loc).Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &gcal.EventDateTime{
			DateTime: b.End.In(loc).Format(time.RFC3339),
			TimeZone: tz,
		},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: emailReminderMinutes},
				{Method: "popup", Minutes: popupReminderMinutes},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

// gone reports that the event no longer exists upstream.
func gone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}

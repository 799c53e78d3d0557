package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/models"
)

// Hooks receive committed lifecycle changes. Implementations are best effort
// and must not fail the booking operation.
type Hooks interface {
	BookingCreated(ctx context.Context, ap *models.Appointment)
	BookingCanceled(ctx context.Context, ap *models.Appointment)
	BookingRescheduled(ctx context.Context, ap *models.Appointment)
}

// MultiHooks fans out to every hook in order.
type MultiHooks []Hooks

func (m MultiHooks) BookingCreated(ctx context.Context, ap *models.Appointment) {
	for _, h := range m {
		h.BookingCreated(ctx, ap)
	}
}

func (m MultiHooks) BookingCanceled(ctx context.Context, ap *models.Appointment) {
	for _, h := range m {
		h.BookingCanceled(ctx, ap)
	}
}

func (m MultiHooks) BookingRescheduled(ctx context.Context, ap *models.Appointment) {
	for _, h := range m {
		h.BookingRescheduled(ctx, ap)
	}
}

// AsyncHooks runs the wrapped hooks off the request path. Each call gets its
// own goroutine and a copy of the appointment.
type AsyncHooks struct {
	next Hooks
	log  logrus.FieldLogger
	wg   sync.WaitGroup
}

func NewAsyncHooks(next Hooks, log logrus.FieldLogger) *AsyncHooks {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AsyncHooks{next: next, log: log.WithField("component", "booking_hooks")}
}

func (a *AsyncHooks) run(event string, ap *models.Appointment, fn func(*models.Appointment)) {
	cp := *ap
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.log.WithFields(logrus.Fields{
					"event":          event,
					"appointment_id": cp.ID,
					"panic":          r,
				}).Error("booking hook panicked")
			}
		}()
		fn(&cp)
	}()
}

func (a *AsyncHooks) BookingCreated(ctx context.Context, ap *models.Appointment) {
	a.run("created", ap, func(cp *models.Appointment) { a.next.BookingCreated(ctx, cp) })
}

func (a *AsyncHooks) BookingCanceled(ctx context.Context, ap *models.Appointment) {
	a.run("canceled", ap, func(cp *models.Appointment) { a.next.BookingCanceled(ctx, cp) })
}

func (a *AsyncHooks) BookingRescheduled(ctx context.Context, ap *models.Appointment) {
	a.run("rescheduled", ap, func(cp *models.Appointment) { a.next.BookingRescheduled(ctx, cp) })
}

// Wait blocks until every dispatched hook has returned or ctx is done.
func (a *AsyncHooks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deps is shared by the booking use cases.
type Deps struct {
	Repo   domain.Repository
	Audit  *audit.Dispatcher
	Hooks  Hooks
	Policy domain.Policy
	Now    func() time.Time
	Log    logrus.FieldLogger
}

func (d Deps) withDefaults() Deps {
	if d.Hooks == nil {
		d.Hooks = MultiHooks(nil)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if d.Policy.CancellationWindow == 0 {
		d.Policy.CancellationWindow = 24 * time.Hour
	}
	return d
}

// detached keeps request values but survives client disconnects.
func detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

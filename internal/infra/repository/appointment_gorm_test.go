package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/testdb"
)

var slotStart = time.Date(2030, 1, 9, 9, 0, 0, 0, time.UTC)

func seedEmployee(t *testing.T) *gorm.DB {
	t.Helper()
	db := testdb.Open(t)
	require.NoError(t, db.Create(&models.Tenant{ID: "t1", Name: "KS", Subdomain: "ks"}).Error)
	require.NoError(t, db.Create(&models.User{ID: 1, TenantID: "t1", Name: "Kari", Email: "kari@ks.no", PasswordHash: "x"}).Error)
	require.NoError(t, db.Create(&models.Service{ID: 1, TenantID: "t1", Name: "Herreklipp", DurationMin: 30}).Error)
	return db
}

func newAppointment(token string, start time.Time) *models.Appointment {
	return &models.Appointment{
		TenantID:        "t1",
		ServiceID:       1,
		EmployeeID:      1,
		CustomerName:    "Ola",
		StartTime:       start,
		EndTime:         start.Add(30 * time.Minute),
		Status:          string(domain.StatusPending),
		ManagementToken: token,
	}
}

type queryRecord struct {
	table  string
	locked bool
}

// recordQueries notes every SELECT and whether it asked for a row lock.
// SQLite drops FOR UPDATE when building SQL, but the clause stays on the
// statement, so the locking order is still visible.
func recordQueries(t *testing.T, db *gorm.DB) func() []queryRecord {
	t.Helper()
	var (
		mu  sync.Mutex
		out []queryRecord
	)
	err := db.Callback().Query().Before("gorm:query").Register("test:record_locks", func(tx *gorm.DB) {
		_, locked := tx.Statement.Clauses["FOR"]
		mu.Lock()
		out = append(out, queryRecord{table: tx.Statement.Table, locked: locked})
		mu.Unlock()
	})
	require.NoError(t, err)

	return func() []queryRecord {
		mu.Lock()
		defer mu.Unlock()
		return append([]queryRecord(nil), out...)
	}
}

func TestCreateAppointmentLocksEmployeeBeforeOverlapCheck(t *testing.T) {
	db := seedEmployee(t)
	queries := recordQueries(t, db)
	repo := NewAppointmentGormRepository(db)

	require.NoError(t, repo.CreateAppointment(context.Background(), newAppointment("tok-1", slotStart)))

	got := queries()
	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, queryRecord{table: "users", locked: true}, got[0])
	assert.Equal(t, "appointments", got[1].table)
}

func TestRescheduleLocksEmployeeBeforeOverlapCheck(t *testing.T) {
	db := seedEmployee(t)
	repo := NewAppointmentGormRepository(db)
	ctx := context.Background()

	ap := newAppointment("tok-1", slotStart)
	require.NoError(t, repo.CreateAppointment(ctx, ap))

	queries := recordQueries(t, db)
	ok, err := repo.RescheduleIfActive(ctx, ap.ID, slotStart.Add(time.Hour), slotStart.Add(90*time.Minute), 0)
	require.NoError(t, err)
	assert.True(t, ok)

	var lockedUsers, countsAfterLock bool
	for _, q := range queries() {
		if q.table == "users" && q.locked {
			lockedUsers = true
		}
		if lockedUsers && q.table == "appointments" && !q.locked {
			countsAfterLock = true
		}
	}
	assert.True(t, lockedUsers)
	assert.True(t, countsAfterLock)
}

func TestConcurrentCreatesBookSlotOnce(t *testing.T) {
	db := seedEmployee(t)
	repo := NewAppointmentGormRepository(db)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		booked    int
		conflicts int
		other     []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Overlapping but not identical windows.
			start := slotStart.Add(time.Duration(i) * time.Minute)
			err := repo.CreateAppointment(context.Background(), newAppointment(fmt.Sprintf("tok-%d", i), start))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				booked++
			case errors.Is(err, domain.ErrTimeConflict):
				conflicts++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, booked)
	assert.Equal(t, callers-1, conflicts)

	var active int64
	require.NoError(t, db.Model(&models.Appointment{}).
		Where("employee_id = ? AND status IN ?", 1, activeStatuses).
		Count(&active).Error)
	assert.EqualValues(t, 1, active)
}

func TestRescheduleIntoTakenSlotConflicts(t *testing.T) {
	db := seedEmployee(t)
	repo := NewAppointmentGormRepository(db)
	ctx := context.Background()

	first := newAppointment("tok-1", slotStart)
	second := newAppointment("tok-2", slotStart.Add(time.Hour))
	require.NoError(t, repo.CreateAppointment(ctx, first))
	require.NoError(t, repo.CreateAppointment(ctx, second))

	_, err := repo.RescheduleIfActive(ctx, second.ID, slotStart.Add(15*time.Minute), slotStart.Add(45*time.Minute), 0)
	assert.ErrorIs(t, err, domain.ErrTimeConflict)

	// Moving within its own window does not conflict with itself.
	ok, err := repo.RescheduleIfActive(ctx, second.ID, slotStart.Add(70*time.Minute), slotStart.Add(100*time.Minute), 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateAppointmentUnknownEmployee(t *testing.T) {
	db := seedEmployee(t)
	repo := NewAppointmentGormRepository(db)

	ap := newAppointment("tok-1", slotStart)
	ap.EmployeeID = 42
	err := repo.CreateAppointment(context.Background(), ap)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

package livesessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/internal/realtime"
	"github.com/inr99/academy/pkg/queue"
	"github.com/inr99/academy/pkg/response"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memStore
	att    *memAttendance
	emails *memEmails
	pub    *memPublisher
	svc    *Service
	host   Caller
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), att: &memAttendance{}, emails: &memEmails{}, pub: &memPublisher{}}
	f.svc = NewService(f.store, f.att, f.emails, f.pub, nil)
	f.svc.now = func() time.Time { return t0 }
	f.host = Caller{ID: f.store.addUser("host", models.RoleInstructor), Role: models.RoleInstructor}
	return f
}

func (f *fixture) schedule(t *testing.T) *models.LiveSession {
	t.Helper()
	s, err := f.svc.Create(context.Background(), f.host, CreateInput{Title: "Budgeting 101", ScheduledAt: t0.Add(time.Hour)})
	require.NoError(t, err)
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCreateDefaults(t *testing.T) {
	f := newFixture()
	s := f.schedule(t)

	assert.Equal(t, models.SessionScheduled, s.Status)
	assert.Equal(t, DefaultDuration, s.Duration)
	assert.Equal(t, f.host.ID, s.HostID)
	assert.Nil(t, s.CourseID)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.host, CreateInput{Title: "x", ScheduledAt: t0, CourseID: strPtr("missing")})
	assert.ErrorIs(t, err, ErrCourseNotFound)

	_, err = f.svc.Create(ctx, f.host, CreateInput{Title: "x", ScheduledAt: t0, MaxParticipants: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Create(ctx, f.host, CreateInput{Title: "x", ScheduledAt: t0, Duration: -5})
	assert.ErrorIs(t, err, ErrInvalidInput)

	student := Caller{ID: uuid.New(), Role: models.RoleStudent}
	_, err = f.svc.Create(ctx, student, CreateInput{Title: "x", ScheduledAt: t0})
	assert.ErrorIs(t, err, ErrForbidden)

	f.store.courses["c-1"] = models.CourseSummary{ID: "c-1", Title: "Course", Slug: "course"}
	s, err := f.svc.Create(ctx, f.host, CreateInput{Title: "x", ScheduledAt: t0, CourseID: strPtr("c-1")})
	require.NoError(t, err)
	assert.Equal(t, "c-1", *s.CourseID)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.schedule(t)

	live, err := f.svc.Update(ctx, s.ID, f.host, UpdateInput{Status: strPtr("LIVE")})
	require.NoError(t, err)
	require.NotNil(t, live.StartedAt)
	assert.Equal(t, t0, *live.StartedAt)

	f.att.rows = []models.AttendanceWithUser{
		{Attendance: models.Attendance{SessionID: s.ID, UserID: uuid.New(), Status: models.AttendancePresent, Duration: intPtr(60)}},
		{Attendance: models.Attendance{SessionID: s.ID, UserID: uuid.New(), Status: models.AttendanceLeftEarly, Duration: intPtr(15)}},
	}
	done, err := f.svc.Update(ctx, s.ID, f.host, UpdateInput{Status: strPtr("COMPLETED")})
	require.NoError(t, err)
	require.NotNil(t, done.EndedAt)

	require.Len(t, f.emails.sent, 1)
	mail := f.emails.sent[0]
	assert.Equal(t, queue.EmailSessionSummary, mail.Template)
	assert.Equal(t, "host@example.com", mail.RecipientEmail)
	assert.Equal(t, "2", mail.Data["total"])
	assert.Equal(t, "1", mail.Data["leftEarly"])
	assert.Equal(t, "37.50", mail.Data["averageDuration"])

	require.Len(t, f.pub.events, 2)
	for _, e := range f.pub.events {
		assert.Equal(t, realtime.EventSessionStatus, e.name)
	}
	assert.Equal(t, "COMPLETED", f.pub.events[1].payload.(realtime.SessionStatusPayload).Status)

	_, err = f.svc.Update(ctx, s.ID, f.host, UpdateInput{Title: strPtr("again")})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestUpdateRejectsInvalidValues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.schedule(t)

	_, err := f.svc.Update(ctx, s.ID, f.host, UpdateInput{Status: strPtr("PAUSED")})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.Update(ctx, s.ID, f.host, UpdateInput{Duration: intPtr(0)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Update(ctx, uuid.New(), f.host, UpdateInput{})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.Update(ctx, s.ID, f.host, UpdateInput{Title: strPtr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Empty(t, f.pub.events)
}

func TestCancelledSessionIsFrozen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.schedule(t)

	_, err := f.svc.Update(ctx, s.ID, f.host, UpdateInput{Status: strPtr("CANCELLED")})
	require.NoError(t, err)
	assert.Empty(t, f.emails.sent)

	_, err = f.svc.Update(ctx, s.ID, f.host, UpdateInput{Status: strPtr("SCHEDULED")})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestOnlyHostOrAdminMayChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s := f.schedule(t)

	other := Caller{ID: f.store.addUser("other", models.RoleInstructor), Role: models.RoleInstructor}
	_, err := f.svc.Update(ctx, s.ID, other, UpdateInput{Title: strPtr("mine now")})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(ctx, s.ID, other), ErrForbidden)

	admin := Caller{ID: uuid.New(), Role: models.RoleAdmin}
	require.NoError(t, f.svc.Delete(ctx, s.ID, admin))
	assert.ErrorIs(t, f.svc.Delete(ctx, s.ID, admin), ErrNotFound)
}

func TestGetIncludesViewerAttendance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.courses["c-1"] = models.CourseSummary{ID: "c-1", Title: "Course", Slug: "course"}
	s, err := f.svc.Create(ctx, f.host, CreateInput{Title: "x", ScheduledAt: t0, CourseID: strPtr("c-1")})
	require.NoError(t, err)

	viewer := uuid.New()
	f.att.rows = []models.AttendanceWithUser{
		{Attendance: models.Attendance{SessionID: s.ID, UserID: viewer, Status: models.AttendanceLate}},
	}

	d, err := f.svc.Get(ctx, s.ID, viewer)
	require.NoError(t, err)
	assert.Equal(t, "host", d.Host.Name)
	assert.Equal(t, "course", d.Course.Slug)
	assert.Len(t, d.Attendees, 1)
	require.NotNil(t, d.MyAttendance)
	assert.Equal(t, models.AttendanceLate, d.MyAttendance.Status)

	d, err = f.svc.Get(ctx, s.ID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, d.MyAttendance)

	_, err = f.svc.Get(ctx, uuid.New(), viewer)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.schedule(t)
	}
	page, err := f.svc.List(ctx, ListQuery{Upcoming: true, Page: response.Page{Page: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Meta.Total)
	assert.Equal(t, 2, page.Meta.TotalPages)

	_, err = f.svc.List(ctx, ListQuery{Status: "bogus", Page: response.Page{Page: 1, Limit: 10}})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

// pausingStore stops the first Update inside its transaction, right after the row lock is taken.
type pausingStore struct {
	*memStore
	once    sync.Once
	locked  chan struct{}
	release chan struct{}
}

func newPausingStore(m *memStore) *pausingStore {
	return &pausingStore{memStore: m, locked: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingStore) WithinTx(ctx context.Context, fn func(tx TxStore) error) error {
	return p.memStore.WithinTx(ctx, func(tx TxStore) error {
		return fn(pausingTx{TxStore: tx, p: p})
	})
}

type pausingTx struct {
	TxStore
	p *pausingStore
}

func (t pausingTx) LockByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	s, err := t.TxStore.LockByID(ctx, id)
	t.p.once.Do(func() {
		close(t.p.locked)
		<-t.p.release
	})
	return s, err
}

func TestTitleEditKeepsConcurrentPromotion(t *testing.T) {
	f := newFixture()
	s := f.schedule(t)
	ps := newPausingStore(f.store)
	svc := NewService(ps, f.att, f.emails, f.pub, nil)
	svc.now = f.svc.now

	done := make(chan error, 1)
	go func() {
		_, err := svc.Update(context.Background(), s.ID, f.host, UpdateInput{Title: strPtr("New title")})
		done <- err
	}()
	<-ps.locked

	promoted := make(chan bool, 1)
	go func() { promoted <- f.store.promote(s.ID, t0.Add(time.Minute)) }()
	select {
	case <-promoted:
		t.Fatal("promotion ran while the session row was locked")
	case <-time.After(50 * time.Millisecond):
	}
	close(ps.release)
	require.NoError(t, <-done)
	assert.True(t, <-promoted)

	got, err := f.store.GetByID(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, models.SessionLive, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.Equal(t, t0.Add(time.Minute), *got.StartedAt)
	assert.False(t, f.store.promote(s.ID, t0.Add(2*time.Minute)), "promoted twice")
}

func TestConcurrentUpdateSeesCancellation(t *testing.T) {
	f := newFixture()
	s := f.schedule(t)
	ps := newPausingStore(f.store)
	svc := NewService(ps, f.att, f.emails, f.pub, nil)
	svc.now = f.svc.now
	ctx := context.Background()

	cancelled := make(chan error, 1)
	go func() {
		_, err := svc.Update(ctx, s.ID, f.host, UpdateInput{Status: strPtr("CANCELLED")})
		cancelled <- err
	}()
	<-ps.locked

	edited := make(chan error, 1)
	go func() {
		_, err := svc.Update(ctx, s.ID, f.host, UpdateInput{Title: strPtr("late edit")})
		edited <- err
	}()
	close(ps.release)

	require.NoError(t, <-cancelled)
	assert.ErrorIs(t, <-edited, ErrSessionClosed)

	got, err := f.store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCancelled, got.Status)
	assert.Equal(t, "Budgeting 101", got.Title)
}

func TestUpdateClearsCapacity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	s, err := f.svc.Create(ctx, f.host, CreateInput{Title: "Capped", ScheduledAt: t0, MaxParticipants: intPtr(5)})
	require.NoError(t, err)

	got, err := f.svc.Update(ctx, s.ID, f.host, UpdateInput{Title: strPtr("Still capped")})
	require.NoError(t, err)
	require.NotNil(t, got.MaxParticipants)
	assert.Equal(t, 5, *got.MaxParticipants)

	got, err = f.svc.Update(ctx, s.ID, f.host, UpdateInput{MaxParticipants: intPtr(9), ClearMaxParticipants: true})
	require.NoError(t, err)
	assert.Nil(t, got.MaxParticipants)
}

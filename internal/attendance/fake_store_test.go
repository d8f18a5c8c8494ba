package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inr99/academy/internal/models"
)

type attKey struct{ session, user uuid.UUID }

// fakeStore is an in-memory Store. WithinTx serializes callers the way the session row lock does
// and restores the previous state when fn fails.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	sessions   map[uuid.UUID]*SessionInfo
	rows       map[attKey]*models.Attendance
	users      map[uuid.UUID]models.UserPublic
	promotions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: map[uuid.UUID]*SessionInfo{},
		rows:     map[attKey]*models.Attendance{},
		users:    map[uuid.UUID]models.UserPublic{},
	}
}

func (f *fakeStore) addSession(s SessionInfo) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = models.SessionScheduled
	}
	if s.Duration == 0 {
		s.Duration = 60
	}
	f.sessions[s.ID] = &s
	return s.ID
}

func (f *fakeStore) addUser(name string) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.users[id] = models.UserPublic{ID: id, Name: name, Email: name + "@example.com", Role: models.RoleStudent}
	return id
}

func (f *fakeStore) session(id uuid.UUID) SessionInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.sessions[id]
}

func (f *fakeStore) GetSession(_ context.Context, id uuid.UUID) (*SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) LockSession(ctx context.Context, id uuid.UUID) (*SessionInfo, error) {
	return f.GetSession(ctx, id)
}

func (f *fakeStore) GetAttendance(_ context.Context, sessionID, userID uuid.UUID) (*models.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[attKey{sessionID, userID}]
	if !ok {
		return nil, ErrNotJoined
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) CountActive(_ context.Context, sessionID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, a := range f.rows {
		if k.session == sessionID && IsActive(a) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) UpsertJoin(_ context.Context, a *models.Attendance) (*models.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := attKey{a.SessionID, a.UserID}
	row, ok := f.rows[k]
	if !ok {
		row = &models.Attendance{ID: uuid.New(), UserID: a.UserID, SessionID: a.SessionID}
		f.rows[k] = row
	}
	row.Status = a.Status
	row.JoinedAt = a.JoinedAt
	row.LeftAt = nil
	row.Duration = nil
	row.DeviceInfo = a.DeviceInfo
	row.IPAddress = a.IPAddress
	cp := *row
	return &cp, nil
}

func (f *fakeStore) PromoteToLive(_ context.Context, sessionID uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[sessionID]
	if s == nil || s.Status != models.SessionScheduled {
		return false, nil
	}
	s.Status = models.SessionLive
	if s.StartedAt == nil {
		s.StartedAt = &at
	}
	f.promotions++
	return true, nil
}

func (f *fakeStore) RecordLeave(_ context.Context, id uuid.UUID, leftAt time.Time, out LeaveOutcome) (*models.Attendance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.ID == id {
			d := out.Duration
			a.LeftAt = &leftAt
			a.Duration = &d
			a.Status = out.Status
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotJoined
}

func (f *fakeStore) ListBySession(_ context.Context, sessionID uuid.UUID, status *models.AttendanceStatus) ([]models.AttendanceWithUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AttendanceWithUser
	for k, a := range f.rows {
		if k.session != sessionID || (status != nil && a.Status != *status) {
			continue
		}
		out = append(out, models.AttendanceWithUser{Attendance: *a, User: f.users[a.UserID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (f *fakeStore) WithinTx(_ context.Context, fn func(tx TxStore) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	sessions := make(map[uuid.UUID]*SessionInfo, len(f.sessions))
	for k, v := range f.sessions {
		cp := *v
		sessions[k] = &cp
	}
	rows := make(map[attKey]*models.Attendance, len(f.rows))
	for k, v := range f.rows {
		cp := *v
		rows[k] = &cp
	}
	promotions := f.promotions
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.sessions, f.rows, f.promotions = sessions, rows, promotions
		f.mu.Unlock()
		return err
	}
	return nil
}

type publishedEvent struct {
	session uuid.UUID
	event   string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(sessionID uuid.UUID, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{sessionID, event, payload})
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event)
	}
	return out
}

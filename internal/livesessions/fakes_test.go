package livesessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inr99/academy/internal/attendance"
	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/pkg/queue"
	"github.com/inr99/academy/pkg/response"
)

type memStore struct {
	txMu     sync.Mutex // held for a whole WithinTx, like the row lock
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.LiveSession
	courses  map[string]models.CourseSummary
	users    map[uuid.UUID]models.UserPublic
}

func newMemStore() *memStore {
	return &memStore{
		sessions: map[uuid.UUID]*models.LiveSession{},
		courses:  map[string]models.CourseSummary{},
		users:    map[uuid.UUID]models.UserPublic{},
	}
}

func (m *memStore) addUser(name string, role models.Role) uuid.UUID {
	id := uuid.New()
	m.users[id] = models.UserPublic{ID: id, Name: name, Email: name + "@example.com", Role: role}
	return id
}

func (m *memStore) Create(_ context.Context, s *models.LiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.LiveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) List(_ context.Context, f ListFilter, p response.Page) ([]models.LiveSession, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LiveSession
	for _, s := range m.sessions {
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.HostID != nil && s.HostID != *f.HostID {
			continue
		}
		if f.Upcoming && (s.ScheduledAt.Before(f.Now) || s.Status != models.SessionScheduled) {
			continue
		}
		out = append(out, *s)
	}
	total := len(out)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (m *memStore) WithinTx(_ context.Context, fn func(tx TxStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func (m *memStore) LockByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error) {
	return m.GetByID(ctx, id)
}

// promote mirrors the attendance join promotion: under the row lock, SCHEDULED becomes LIVE.
func (m *memStore) promote(id uuid.UUID, at time.Time) bool {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	if s.Status != models.SessionScheduled {
		return false
	}
	s.Status = models.SessionLive
	s.StartedAt = &at
	return true
}

func (m *memStore) Update(_ context.Context, s *models.LiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrNotFound
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memStore) CourseSummary(_ context.Context, courseID string) (*models.CourseSummary, error) {
	c, ok := m.courses[courseID]
	if !ok {
		return nil, ErrCourseNotFound
	}
	return &c, nil
}

func (m *memStore) Host(_ context.Context, userID uuid.UUID) (*models.UserPublic, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrHostNotFound
	}
	return &u, nil
}

type memAttendance struct {
	rows []models.AttendanceWithUser
}

func (a *memAttendance) GetSession(context.Context, uuid.UUID) (*attendance.SessionInfo, error) {
	return nil, attendance.ErrSessionNotFound
}

func (a *memAttendance) GetAttendance(_ context.Context, sessionID, userID uuid.UUID) (*models.Attendance, error) {
	for _, r := range a.rows {
		if r.SessionID == sessionID && r.UserID == userID {
			cp := r.Attendance
			return &cp, nil
		}
	}
	return nil, attendance.ErrNotJoined
}

func (a *memAttendance) ListBySession(_ context.Context, sessionID uuid.UUID, _ *models.AttendanceStatus) ([]models.AttendanceWithUser, error) {
	var out []models.AttendanceWithUser
	for _, r := range a.rows {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (a *memAttendance) CountActive(context.Context, uuid.UUID) (int, error) { return 0, nil }

type memEmails struct {
	sent []queue.EmailPayload
}

func (e *memEmails) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	e.sent = append(e.sent, p)
	return nil
}

type event struct {
	session uuid.UUID
	name    string
	payload any
}

type memPublisher struct {
	events []event
}

func (p *memPublisher) Publish(sessionID uuid.UUID, name string, payload any) {
	p.events = append(p.events, event{session: sessionID, name: name, payload: payload})
}

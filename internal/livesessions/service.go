package livesessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/attendance"
	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/internal/realtime"
	"github.com/inr99/academy/pkg/queue"
	"github.com/inr99/academy/pkg/response"
)

const DefaultDuration = 60

var (
	ErrNotFound       = errors.New("live session not found")
	ErrForbidden      = errors.New("only the host or an admin can change this session")
	ErrSessionClosed  = errors.New("cannot modify a completed or cancelled session")
	ErrInvalidStatus  = errors.New("invalid session status")
	ErrCourseNotFound = errors.New("course not found")
	ErrHostNotFound   = errors.New("host not found")
	ErrInvalidInput   = errors.New("invalid input")
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, s *models.LiveSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error)
	List(ctx context.Context, f ListFilter, p response.Page) ([]models.LiveSession, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CourseSummary(ctx context.Context, courseID string) (*models.CourseSummary, error)
	Host(ctx context.Context, userID uuid.UUID) (*models.UserPublic, error)
	// WithinTx runs fn in one transaction; fn's error rolls it back.
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the transaction-scoped part of Store. LockByID holds the row until commit,
// the same lock attendance join takes before promoting a session to LIVE.
type TxStore interface {
	LockByID(ctx context.Context, id uuid.UUID) (*models.LiveSession, error)
	Update(ctx context.Context, s *models.LiveSession) error
}

// EmailEnqueuer queues outbound e-mail.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// Publisher fans session events out to realtime subscribers.
type Publisher interface {
	Publish(sessionID uuid.UUID, event string, payload any)
}

// Caller is the authenticated user acting on a session.
type Caller struct {
	ID   uuid.UUID
	Role models.Role
}

// CreateInput holds the fields of a new session.
type CreateInput struct {
	Title           string
	Description     string
	CourseID        *string
	ScheduledAt     time.Time
	Duration        int
	MaxParticipants *int
	IsRecorded      bool
	Metadata        json.RawMessage
	MeetingURL      string
}

// UpdateInput holds a partial update; nil fields are left unchanged.
// ClearMaxParticipants removes the capacity and wins over MaxParticipants.
type UpdateInput struct {
	Title                *string
	Description          *string
	ScheduledAt          *time.Time
	Duration             *int
	Status               *string
	MaxParticipants      *int
	ClearMaxParticipants bool
	IsRecorded           *bool
	Metadata             json.RawMessage
	MeetingURL           *string
}

// ListQuery is the parsed query string of the listing.
type ListQuery struct {
	Status   string
	CourseID string
	HostID   *uuid.UUID
	Upcoming bool
	Page     response.Page
}

// Detail is a session with its host, course and attendance.
type Detail struct {
	models.LiveSession
	Host         *models.UserPublic          `json:"host"`
	Course       *models.CourseSummary       `json:"course"`
	Attendees    []models.AttendanceWithUser `json:"attendees"`
	MyAttendance *models.Attendance          `json:"myAttendance"`
}

// Service implements live session CRUD.
type Service struct {
	store      Store
	attendance attendance.Reader
	emails     EmailEnqueuer
	publisher  Publisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates the live session service. emails and publisher may be nil.
func NewService(store Store, att attendance.Reader, emails EmailEnqueuer, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, attendance: att, emails: emails, publisher: publisher, logger: logger, now: time.Now}
}

// Create schedules a session hosted by the caller.
func (s *Service) Create(ctx context.Context, caller Caller, in CreateInput) (*models.LiveSession, error) {
	if !caller.Role.CanHost() {
		return nil, ErrForbidden
	}
	if in.Duration == 0 {
		in.Duration = DefaultDuration
	}
	if err := validate(in.Duration, in.MaxParticipants); err != nil {
		return nil, err
	}
	if in.CourseID != nil && *in.CourseID == "" {
		in.CourseID = nil
	}
	if in.CourseID != nil {
		if _, err := s.store.CourseSummary(ctx, *in.CourseID); err != nil {
			return nil, err
		}
	}

	session := &models.LiveSession{
		Title:           in.Title,
		Description:     in.Description,
		CourseID:        in.CourseID,
		HostID:          caller.ID,
		ScheduledAt:     in.ScheduledAt.UTC(),
		Duration:        in.Duration,
		Status:          models.SessionScheduled,
		MaxParticipants: in.MaxParticipants,
		IsRecorded:      in.IsRecorded,
		MeetingURL:      in.MeetingURL,
		Metadata:        in.Metadata,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("live session scheduled", zap.String("session_id", session.ID.String()), zap.String("host_id", caller.ID.String()))
	return session, nil
}

// List returns a page of sessions.
func (s *Service) List(ctx context.Context, q ListQuery) (*response.Paginated[models.LiveSession], error) {
	f := ListFilter{HostID: q.HostID, Upcoming: q.Upcoming, Now: s.now().UTC()}
	if q.Status != "" {
		st := models.SessionStatus(q.Status)
		if !st.Valid() {
			return nil, ErrInvalidStatus
		}
		f.Status = &st
	}
	if q.CourseID != "" {
		f.CourseID = &q.CourseID
	}
	items, total, err := s.store.List(ctx, f, q.Page)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	page := response.NewPaginated(items, q.Page, total)
	return &page, nil
}

// Get returns the session detail as seen by viewerID.
func (s *Service) Get(ctx context.Context, id, viewerID uuid.UUID) (*Detail, error) {
	session, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &Detail{LiveSession: *session}

	host, err := s.store.Host(ctx, session.HostID)
	if err != nil && !errors.Is(err, ErrHostNotFound) {
		return nil, fmt.Errorf("load host: %w", err)
	}
	d.Host = host

	if session.CourseID != nil {
		course, err := s.store.CourseSummary(ctx, *session.CourseID)
		if err != nil && !errors.Is(err, ErrCourseNotFound) {
			return nil, fmt.Errorf("load course: %w", err)
		}
		d.Course = course
	}

	d.Attendees, err = s.attendance.ListBySession(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	if d.Attendees == nil {
		d.Attendees = []models.AttendanceWithUser{}
	}

	mine, err := s.attendance.GetAttendance(ctx, id, viewerID)
	if err != nil && !errors.Is(err, attendance.ErrNotJoined) {
		return nil, fmt.Errorf("load attendance: %w", err)
	}
	d.MyAttendance = mine
	return d, nil
}

// Update applies a partial update by the host or an admin. The session row stays locked from
// read to write so a concurrent join promotion or a second update cannot be overwritten.
func (s *Service) Update(ctx context.Context, id uuid.UUID, caller Caller, in UpdateInput) (*models.LiveSession, error) {
	var (
		session *models.LiveSession
		prev    models.SessionStatus
		now     = s.now().UTC()
	)
	err := s.store.WithinTx(ctx, func(tx TxStore) error {
		current, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if current.HostID != caller.ID && caller.Role != models.RoleAdmin {
			return ErrForbidden
		}
		if current.Status.Terminal() {
			return ErrSessionClosed
		}
		prev = current.Status
		if err := apply(current, in, now); err != nil {
			return err
		}
		if err := tx.Update(ctx, current); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		session = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	if session.Status != prev {
		s.logger.Info("live session status changed",
			zap.String("session_id", id.String()),
			zap.String("from", string(prev)),
			zap.String("to", string(session.Status)))
		if s.publisher != nil {
			s.publisher.Publish(id, realtime.EventSessionStatus, realtime.SessionStatusPayload{
				SessionID: id,
				Status:    string(session.Status),
				At:        now,
			})
		}
		if session.Status == models.SessionCompleted {
			s.enqueueSummary(ctx, session)
		}
	}
	return session, nil
}

// apply merges in into session and stamps startedAt / endedAt for status changes.
func apply(session *models.LiveSession, in UpdateInput, now time.Time) error {
	if in.Status != nil {
		st := models.SessionStatus(*in.Status)
		if !st.Valid() {
			return ErrInvalidStatus
		}
		session.Status = st
	}
	if in.Title != nil {
		if *in.Title == "" {
			return fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		session.Title = *in.Title
	}
	if in.Description != nil {
		session.Description = *in.Description
	}
	if in.ScheduledAt != nil {
		session.ScheduledAt = in.ScheduledAt.UTC()
	}
	if in.Duration != nil {
		session.Duration = *in.Duration
	}
	switch {
	case in.ClearMaxParticipants:
		session.MaxParticipants = nil
	case in.MaxParticipants != nil:
		session.MaxParticipants = in.MaxParticipants
	}
	if in.IsRecorded != nil {
		session.IsRecorded = *in.IsRecorded
	}
	if in.MeetingURL != nil {
		session.MeetingURL = *in.MeetingURL
	}
	if len(in.Metadata) > 0 {
		session.Metadata = in.Metadata
	}
	if err := validate(session.Duration, session.MaxParticipants); err != nil {
		return err
	}

	if session.Status == models.SessionLive && session.StartedAt == nil {
		session.StartedAt = &now
	}
	if session.Status == models.SessionCompleted {
		session.EndedAt = &now
	}
	return nil
}

// Delete removes a session owned by the caller, or any session for an admin.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, caller Caller) error {
	if _, err := s.authorize(ctx, id, caller); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("live session deleted", zap.String("session_id", id.String()), zap.String("by", caller.ID.String()))
	return nil
}

func (s *Service) authorize(ctx context.Context, id uuid.UUID, caller Caller) (*models.LiveSession, error) {
	session, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.HostID != caller.ID && caller.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	return session, nil
}

// enqueueSummary mails the host the attendance stats of a completed session.
func (s *Service) enqueueSummary(ctx context.Context, session *models.LiveSession) {
	if s.emails == nil {
		return
	}
	log := s.logger.With(zap.String("session_id", session.ID.String()))
	host, err := s.store.Host(ctx, session.HostID)
	if err != nil {
		log.Warn("session summary skipped: host lookup", zap.Error(err))
		return
	}
	rows, err := s.attendance.ListBySession(ctx, session.ID, nil)
	if err != nil {
		log.Warn("session summary skipped: attendance", zap.Error(err))
		return
	}
	st := attendance.ComputeStats(rows)
	err = s.emails.EnqueueEmail(ctx, queue.EmailPayload{
		Template:       queue.EmailSessionSummary,
		RecipientEmail: host.Email,
		RecipientName:  host.Name,
		Data: map[string]string{
			"sessionTitle":    session.Title,
			"total":           strconv.Itoa(st.Total),
			"present":         strconv.Itoa(st.ByStatus[models.AttendancePresent]),
			"late":            strconv.Itoa(st.ByStatus[models.AttendanceLate]),
			"leftEarly":       strconv.Itoa(st.ByStatus[models.AttendanceLeftEarly]),
			"averageDuration": strconv.FormatFloat(st.AverageDuration, 'f', 2, 64),
		},
	})
	if err != nil {
		log.Warn("session summary not queued", zap.Error(err))
	}
}

func validate(duration int, maxParticipants *int) error {
	if duration <= 0 {
		return fmt.Errorf("%w: duration must be greater than 0", ErrInvalidInput)
	}
	if maxParticipants != nil && *maxParticipants <= 0 {
		return fmt.Errorf("%w: maxParticipants must be greater than 0", ErrInvalidInput)
	}
	return nil
}

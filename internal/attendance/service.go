package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inr99/academy/internal/models"
	"github.com/inr99/academy/internal/realtime"
)

var (
	ErrSessionNotFound    = errors.New("live session not found")
	ErrSessionNotJoinable = errors.New("session is not available for joining")
	ErrSessionFull        = errors.New("session is full")
	ErrNotJoined          = errors.New("you have not joined this session")
	ErrInvalidStatus      = errors.New("invalid attendance status")
)

// Reader is the read side of attendance persistence.
type Reader interface {
	GetSession(ctx context.Context, id uuid.UUID) (*SessionInfo, error)
	// GetAttendance returns ErrNotJoined when the user has no row for the session.
	GetAttendance(ctx context.Context, sessionID, userID uuid.UUID) (*models.Attendance, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, status *models.AttendanceStatus) ([]models.AttendanceWithUser, error)
	CountActive(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// Store is everything the service persists through.
type Store interface {
	Reader
	RecordLeave(ctx context.Context, attendanceID uuid.UUID, leftAt time.Time, out LeaveOutcome) (*models.Attendance, error)
	// WithinTx runs fn in one database transaction.
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the transactional view used by Join.
type TxStore interface {
	// LockSession reads the session and holds its row lock until the transaction ends.
	LockSession(ctx context.Context, id uuid.UUID) (*SessionInfo, error)
	GetAttendance(ctx context.Context, sessionID, userID uuid.UUID) (*models.Attendance, error)
	CountActive(ctx context.Context, sessionID uuid.UUID) (int, error)
	UpsertJoin(ctx context.Context, a *models.Attendance) (*models.Attendance, error)
	// PromoteToLive flips a SCHEDULED session to LIVE and reports whether it did.
	PromoteToLive(ctx context.Context, sessionID uuid.UUID, at time.Time) (bool, error)
}

// Publisher fans session events out to realtime subscribers.
type Publisher interface {
	Publish(sessionID uuid.UUID, event string, payload any)
}

// JoinInput carries optional client details recorded with the join.
type JoinInput struct {
	DeviceInfo string
	IPAddress  string
}

// JoinResult is the outcome of Join.
type JoinResult struct {
	Attendance      *models.Attendance `json:"attendance"`
	AlreadyJoined   bool               `json:"alreadyJoined"`
	SessionPromoted bool               `json:"sessionPromoted"`
}

// Stats aggregates a session's attendance.
type Stats struct {
	Total           int                             `json:"total"`
	ByStatus        map[models.AttendanceStatus]int `json:"byStatus"`
	AverageDuration float64                         `json:"averageDuration"`
}

// ListResult is an attendance listing with its stats.
type ListResult struct {
	Attendances []models.AttendanceWithUser `json:"attendances"`
	Stats       Stats                       `json:"stats"`
}

// Service runs the attendance lifecycle.
type Service struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates the attendance service. publisher may be nil.
func NewService(store Store, publisher Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, publisher: publisher, logger: logger, now: time.Now}
}

// Join records userID's arrival in the session. Joining twice while active is a no-op.
func (s *Service) Join(ctx context.Context, sessionID, userID uuid.UUID, in JoinInput) (*JoinResult, error) {
	now := s.now().UTC()
	var result JoinResult

	err := s.store.WithinTx(ctx, func(tx TxStore) error {
		session, err := tx.LockSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if !Joinable(*session) {
			return ErrSessionNotJoinable
		}

		existing, err := tx.GetAttendance(ctx, sessionID, userID)
		if err != nil && !errors.Is(err, ErrNotJoined) {
			return err
		}
		if IsActive(existing) {
			result = JoinResult{Attendance: existing, AlreadyJoined: true}
			return nil
		}

		if session.MaxParticipants != nil {
			active, err := tx.CountActive(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("count participants: %w", err)
			}
			if active >= *session.MaxParticipants {
				return ErrSessionFull
			}
		}

		att, err := s.recordJoin(ctx, tx, *session, userID, in, now)
		if err != nil {
			return err
		}
		promoted, err := s.ensureSessionLive(ctx, tx, *session, now)
		if err != nil {
			return err
		}
		result = JoinResult{Attendance: att, SessionPromoted: promoted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyJoined {
		s.publish(sessionID, realtime.EventAttendanceJoined, result.Attendance)
		if result.SessionPromoted {
			s.publish(sessionID, realtime.EventSessionStatus, realtime.SessionStatusPayload{
				SessionID: sessionID,
				Status:    string(models.SessionLive),
				At:        now,
			})
		}
		s.publishCount(ctx, sessionID)
	}
	return &result, nil
}

// recordJoin upserts the attendance row for the join.
func (s *Service) recordJoin(ctx context.Context, tx TxStore, session SessionInfo, userID uuid.UUID, in JoinInput, now time.Time) (*models.Attendance, error) {
	att, err := tx.UpsertJoin(ctx, &models.Attendance{
		UserID:     userID,
		SessionID:  session.ID,
		Status:     JoinStatus(session, now),
		JoinedAt:   now,
		DeviceInfo: in.DeviceInfo,
		IPAddress:  in.IPAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("record join: %w", err)
	}
	return att, nil
}

// ensureSessionLive promotes a SCHEDULED session to LIVE on its first join.
func (s *Service) ensureSessionLive(ctx context.Context, tx TxStore, session SessionInfo, now time.Time) (bool, error) {
	if session.Status != models.SessionScheduled {
		return false, nil
	}
	promoted, err := tx.PromoteToLive(ctx, session.ID, now)
	if err != nil {
		return false, fmt.Errorf("promote session: %w", err)
	}
	if promoted {
		s.logger.Info("live session started by first join", zap.String("session_id", session.ID.String()))
	}
	return promoted, nil
}

// Leave records userID's departure and computes the time spent.
func (s *Service) Leave(ctx context.Context, sessionID, userID uuid.UUID) (*models.Attendance, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.GetAttendance(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	leftAt := s.now().UTC()
	out := ComputeLeave(*session, existing.JoinedAt, leftAt)
	att, err := s.store.RecordLeave(ctx, existing.ID, leftAt, out)
	if err != nil {
		return nil, fmt.Errorf("record leave: %w", err)
	}

	s.publish(sessionID, realtime.EventAttendanceLeft, att)
	s.publishCount(ctx, sessionID)
	return att, nil
}

// List returns the session's attendance, optionally filtered by status, with stats.
func (s *Service) List(ctx context.Context, sessionID uuid.UUID, statusFilter string) (*ListResult, error) {
	var filter *models.AttendanceStatus
	if statusFilter != "" {
		st := models.AttendanceStatus(statusFilter)
		if !st.Valid() {
			return nil, ErrInvalidStatus
		}
		filter = &st
	}
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListBySession(ctx, sessionID, filter)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	if rows == nil {
		rows = []models.AttendanceWithUser{}
	}
	return &ListResult{Attendances: rows, Stats: ComputeStats(rows)}, nil
}

// ComputeStats counts rows per status and averages the non-null durations to two decimals.
func ComputeStats(rows []models.AttendanceWithUser) Stats {
	st := Stats{Total: len(rows), ByStatus: make(map[models.AttendanceStatus]int, len(models.AttendanceStatuses))}
	for _, v := range models.AttendanceStatuses {
		st.ByStatus[v] = 0
	}
	var sum, n int
	for _, r := range rows {
		st.ByStatus[r.Status]++
		if r.Duration != nil {
			sum += *r.Duration
			n++
		}
	}
	if n > 0 {
		st.AverageDuration = math.Round(float64(sum)/float64(n)*100) / 100
	}
	return st
}

func (s *Service) publish(sessionID uuid.UUID, event string, payload any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(sessionID, event, payload)
}

func (s *Service) publishCount(ctx context.Context, sessionID uuid.UUID) {
	if s.publisher == nil {
		return
	}
	n, err := s.store.CountActive(ctx, sessionID)
	if err != nil {
		s.logger.Warn("count participants", zap.String("session_id", sessionID.String()), zap.Error(err))
		return
	}
	s.publisher.Publish(sessionID, realtime.EventParticipantCount, realtime.ParticipantCountPayload{SessionID: sessionID, Count: n})
}

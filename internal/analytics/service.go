package analytics

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/inr99/academy/internal/models"
)

const (
	DefaultDays = 30
	MaxDays     = 365
)

// Totals are platform-wide counts.
type Totals struct {
	Users               int                          `json:"users"`
	UsersByRole         map[models.Role]int          `json:"usersByRole"`
	Courses             int                          `json:"courses"`
	ActiveCourses       int                          `json:"activeCourses"`
	LiveSessions        int                          `json:"liveSessions"`
	SessionsByStatus    map[models.SessionStatus]int `json:"sessionsByStatus"`
	Attendances         int                          `json:"attendances"`
	ActiveSubscriptions int                          `json:"activeSubscriptions"`
	Certificates        int                          `json:"certificates"`
}

// Window counts activity since the start of the reporting window.
type Window struct {
	NewUsers           int `json:"newUsers"`
	SessionsHeld       int `json:"sessionsHeld"`
	CertificatesIssued int `json:"certificatesIssued"`
}

// DailyCount is one point of a daily series.
type DailyCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int    `json:"count"`
}

// Summary is the admin dashboard payload.
type Summary struct {
	Days                      int          `json:"days"`
	Since                     time.Time    `json:"since"`
	Totals                    Totals       `json:"totals"`
	Window                    Window       `json:"window"`
	AverageAttendanceDuration float64      `json:"averageAttendanceDuration"`
	Signups                   []DailyCount `json:"signups"`
}

// Source reads the aggregates.
type Source interface {
	Totals(ctx context.Context) (*Totals, error)
	Window(ctx context.Context, since time.Time) (*Window, error)
	AverageAttendanceDuration(ctx context.Context) (float64, error)
	// SignupsByDay maps YYYY-MM-DD to the number of users created that day, from since onwards.
	SignupsByDay(ctx context.Context, since time.Time) (map[string]int, error)
}

// Service assembles the dashboard.
type Service struct {
	src Source
	now func() time.Time
}

// NewService creates the analytics service.
func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

// ParseDays reads the ?days= value: 30 when absent or malformed, clamped to 1..365.
func ParseDays(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return DefaultDays
	}
	if n < 1 {
		return 1
	}
	if n > MaxDays {
		return MaxDays
	}
	return n
}

// Summary returns the dashboard for the last days days, today included.
func (s *Service) Summary(ctx context.Context, days int) (*Summary, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	totals, err := s.src.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	window, err := s.src.Window(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}
	avg, err := s.src.AverageAttendanceDuration(ctx)
	if err != nil {
		return nil, fmt.Errorf("average duration: %w", err)
	}
	byDay, err := s.src.SignupsByDay(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("signups: %w", err)
	}

	fillZeros(totals)
	series := make([]DailyCount, 0, days)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		series = append(series, DailyCount{Date: key, Count: byDay[key]})
	}
	return &Summary{
		Days:                      days,
		Since:                     since,
		Totals:                    *totals,
		Window:                    *window,
		AverageAttendanceDuration: math.Round(avg*100) / 100,
		Signups:                   series,
	}, nil
}

// fillZeros makes every role and status appear in the maps, zero when absent.
func fillZeros(t *Totals) {
	if t.UsersByRole == nil {
		t.UsersByRole = map[models.Role]int{}
	}
	for _, r := range []models.Role{models.RoleStudent, models.RoleInstructor, models.RoleAdmin} {
		if _, ok := t.UsersByRole[r]; !ok {
			t.UsersByRole[r] = 0
		}
	}
	if t.SessionsByStatus == nil {
		t.SessionsByStatus = map[models.SessionStatus]int{}
	}
	for _, st := range []models.SessionStatus{models.SessionScheduled, models.SessionLive, models.SessionCompleted, models.SessionCancelled} {
		if _, ok := t.SessionsByStatus[st]; !ok {
			t.SessionsByStatus[st] = 0
		}
	}
}

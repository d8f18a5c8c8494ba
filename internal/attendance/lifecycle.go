package attendance

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/inr99/academy/internal/models"
)

// LateThreshold is how long after the effective start a join still counts as PRESENT.
const LateThreshold = 10 * time.Minute

// SessionInfo is the slice of a live session the lifecycle rules look at.
type SessionInfo struct {
	ID              uuid.UUID
	Status          models.SessionStatus
	HostID          uuid.UUID
	ScheduledAt     time.Time
	StartedAt       *time.Time
	Duration        int // minutes
	MaxParticipants *int
}

// SessionStart is the effective start: startedAt when the session went live, else scheduledAt.
func SessionStart(s SessionInfo) time.Time {
	if s.StartedAt != nil {
		return *s.StartedAt
	}
	return s.ScheduledAt
}

// SessionEnd is the effective start plus the planned duration.
func SessionEnd(s SessionInfo) time.Time {
	return SessionStart(s).Add(time.Duration(s.Duration) * time.Minute)
}

// JoinStatus is LATE when now is strictly more than LateThreshold past the effective start.
func JoinStatus(s SessionInfo, now time.Time) models.AttendanceStatus {
	if now.After(SessionStart(s).Add(LateThreshold)) {
		return models.AttendanceLate
	}
	return models.AttendancePresent
}

// Joinable reports whether users may join the session.
func Joinable(s SessionInfo) bool {
	return s.Status == models.SessionScheduled || s.Status == models.SessionLive
}

// IsActive reports whether the attendee is currently counted as in the session.
func IsActive(a *models.Attendance) bool {
	return a != nil && (a.Status == models.AttendancePresent || a.Status == models.AttendanceLate)
}

// LeaveOutcome is the result of leaving a session.
type LeaveOutcome struct {
	Status   models.AttendanceStatus
	Duration int // whole minutes, never negative
}

// ComputeLeave derives the status and duration recorded when an attendee leaves.
func ComputeLeave(s SessionInfo, joinedAt, leftAt time.Time) LeaveOutcome {
	status := models.AttendancePresent
	if leftAt.Before(SessionEnd(s)) {
		status = models.AttendanceLeftEarly
	}
	return LeaveOutcome{Status: status, Duration: RoundMinutes(leftAt.Sub(joinedAt))}
}

// RoundMinutes rounds d to the nearest minute, clamping negatives to zero.
func RoundMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}

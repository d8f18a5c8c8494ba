package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a live session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "SCHEDULED"
	SessionLive      SessionStatus = "LIVE"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionLive, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further changes are allowed.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// LiveSession is a scheduled or running class.
type LiveSession struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	CourseID        *string         `json:"courseId,omitempty"`
	HostID          uuid.UUID       `json:"hostId"`
	ScheduledAt     time.Time       `json:"scheduledAt"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	EndedAt         *time.Time      `json:"endedAt,omitempty"`
	Duration        int             `json:"duration"` // minutes
	Status          SessionStatus   `json:"status"`
	MaxParticipants *int            `json:"maxParticipants,omitempty"`
	IsRecorded      bool            `json:"isRecorded"`
	MeetingURL      string          `json:"meetingUrl,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// AttendanceStatus is the state of one user's attendance in a session.
type AttendanceStatus string

const (
	AttendancePresent   AttendanceStatus = "PRESENT"
	AttendanceLate      AttendanceStatus = "LATE"
	AttendanceLeftEarly AttendanceStatus = "LEFT_EARLY"
	AttendanceAbsent    AttendanceStatus = "ABSENT"
)

// AttendanceStatuses lists every status in display order.
var AttendanceStatuses = []AttendanceStatus{AttendancePresent, AttendanceLate, AttendanceLeftEarly, AttendanceAbsent}

// Valid reports whether s is a known status.
func (s AttendanceStatus) Valid() bool {
	for _, v := range AttendanceStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Attendance is one user's participation record in a live session.
type Attendance struct {
	ID         uuid.UUID        `json:"id"`
	UserID     uuid.UUID        `json:"userId"`
	SessionID  uuid.UUID        `json:"sessionId"`
	Status     AttendanceStatus `json:"status"`
	JoinedAt   time.Time        `json:"joinedAt"`
	LeftAt     *time.Time       `json:"leftAt,omitempty"`
	Duration   *int             `json:"duration,omitempty"` // minutes
	DeviceInfo string           `json:"deviceInfo,omitempty"`
	IPAddress  string           `json:"ipAddress,omitempty"`
}

// AttendanceWithUser carries the attendee's name and e-mail for listings.
type AttendanceWithUser struct {
	Attendance
	User UserPublic `json:"user"`
}

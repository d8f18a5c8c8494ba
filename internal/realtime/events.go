package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Events pushed to clients watching a live session.
const (
	EventAttendanceJoined = "attendance_joined"
	EventAttendanceLeft   = "attendance_left"
	EventSessionStatus    = "session_status"
	EventParticipantCount = "participant_count"
	EventViewerCount      = "viewer_count"
)

// SessionStatusPayload accompanies EventSessionStatus.
type SessionStatusPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// ParticipantCountPayload accompanies EventParticipantCount. Count is attendees currently PRESENT or LATE.
type ParticipantCountPayload struct {
	SessionID uuid.UUID `json:"sessionId"`
	Count     int       `json:"count"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Certificate is issued to a user who completed a course.
type Certificate struct {
	ID                uuid.UUID `json:"id"`
	UserID            uuid.UUID `json:"userId"`
	CourseID          string    `json:"courseId"`
	CertificateNumber string    `json:"certificateNumber"`
	IssuedAt          time.Time `json:"issuedAt"`
}

// CertificateVerification is the public view of a certificate.
type CertificateVerification struct {
	Number      string    `json:"number"`
	IssuedAt    time.Time `json:"issuedAt"`
	StudentName string    `json:"studentName"`
	CourseTitle string    `json:"courseTitle"`
}

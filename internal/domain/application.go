package domain

import (
	"errors"
	"time"
)

var (
	ErrApplicationNotFound      = errors.New("application not found")
	ErrAlreadyApplied           = errors.New("candidate already applied to this job")
	ErrInvalidStatusChange      = errors.New("application status cannot be changed")
	ErrInvalidApplicationStatus = errors.New("invalid application status")
)

type ApplicationStatus string

const (
	ApplicationSubmitted ApplicationStatus = "submitted"
	ApplicationReviewing ApplicationStatus = "reviewing"
	ApplicationAccepted  ApplicationStatus = "accepted"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationWithdrawn ApplicationStatus = "withdrawn"
)

// Final statuses admit no further transitions.
func (s ApplicationStatus) Final() bool {
	switch s {
	case ApplicationAccepted, ApplicationRejected, ApplicationWithdrawn:
		return true
	}
	return false
}

// EmployerSettable lists the statuses an employer may move an application to.
func (s ApplicationStatus) EmployerSettable() bool {
	switch s {
	case ApplicationReviewing, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

type Application struct {
	ID          string
	JobID       string
	CandidateID string
	CoverLetter string
	Status      ApplicationStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

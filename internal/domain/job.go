package domain

import (
	"errors"
	"time"
)

var (
	ErrJobNotFound           = errors.New("job posting not found")
	ErrJobClosed             = errors.New("job posting is closed")
	ErrInvalidEmploymentType = errors.New("invalid employment type")
)

type JobStatus string

const (
	JobStatusOpen   JobStatus = "open"
	JobStatusClosed JobStatus = "closed"
)

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
)

func (t EmploymentType) Valid() bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentInternship:
		return true
	}
	return false
}

type Job struct {
	ID             string
	EmployerID     string
	Title          string
	Description    string
	Location       string
	Remote         bool
	EmploymentType EmploymentType
	SalaryMin      *int
	SalaryMax      *int
	Status         JobStatus
	ClosesAt       *time.Time // nil means open until closed by hand

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AcceptsApplications reports whether candidates may still apply at now.
func (j *Job) AcceptsApplications(now time.Time) bool {
	if j.Status != JobStatusOpen {
		return false
	}
	return j.ClosesAt == nil || now.Before(*j.ClosesAt)
}

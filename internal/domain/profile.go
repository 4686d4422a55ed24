package domain

import "time"

type CandidateProfile struct {
	UserID    string
	Headline  string
	Bio       string
	Location  string
	Skills    []string
	ResumeURL *string
	UpdatedAt time.Time
}

type CompanyProfile struct {
	UserID      string
	CompanyName string
	Website     *string
	Industry    string
	Size        string
	Description string
	UpdatedAt   time.Time
}

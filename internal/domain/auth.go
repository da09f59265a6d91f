package domain

import "time"

// Token describes an issued bearer credential.
type Token struct {
	Value     string
	SubjectID string
	ExpiresAt time.Time
}

// OTPRecord is a pending one-time code. Only the hash is stored.
type OTPRecord struct {
	Contact   string
	CodeHash  string
	Attempts  int
	ExpiresAt time.Time
}

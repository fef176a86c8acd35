package domain

import "time"

// SubjectType differentiates employee vs customer tokens.
type SubjectType string

const (
	SubjectTypeEmployee SubjectType = "EMPLOYEE"
	SubjectTypeCustomer SubjectType = "CUSTOMER"
)

// Valid reports whether t is a known subject type.
func (t SubjectType) Valid() bool {
	return t == SubjectTypeEmployee || t == SubjectTypeCustomer
}

// Subject is the principal a token represents.
type Subject struct {
	ID    string
	Type  SubjectType
	Role  Role
	Email string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
}

package domain

import "time"

// Role enumerates HR platform roles.
type Role string

const (
	RoleSuperUser Role = "SUPER_USER"
	RoleHR        Role = "HR"
	RoleEmployee  Role = "EMPLOYEE"
	RoleManager   Role = "MANAGER"
	RoleDirector  Role = "DIRECTOR"
	RoleCustomer  Role = "CUSTOMER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperUser, RoleHR, RoleEmployee, RoleManager, RoleDirector, RoleCustomer:
		return true
	}
	return false
}

// Account is the credential-bearing view of an employee or customer record.
// The employee/customer domain owns these rows; identity only reads them and
// replaces PasswordHash on reset.
type Account struct {
	Subject      Subject
	Name         string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

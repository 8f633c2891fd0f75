package models

import "time"

type AdminRole string

const (
	AdminRoleAdmin      AdminRole = "admin"
	AdminRoleSuperAdmin AdminRole = "super_admin"
)

func (r AdminRole) Valid() bool {
	return r == AdminRoleAdmin || r == AdminRoleSuperAdmin
}

// AdminRecord is a row of the admin registry.
type AdminRecord struct {
	UserID    string
	Email     string
	Role      AdminRole
	CreatedAt time.Time
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// RoleName is one of the fixed role names a user may hold. Roles are a set, not a rank.
type RoleName string

const (
	RoleAdmin      RoleName = "admin"
	RoleUser       RoleName = "user"
	RoleMentor     RoleName = "mentor"
	RoleCounsellor RoleName = "counsellor"
)

// AllRoles lists the roles seeded at migration time.
var AllRoles = []RoleName{RoleAdmin, RoleUser, RoleMentor, RoleCounsellor}

func (r RoleName) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleMentor, RoleCounsellor:
		return true
	}
	return false
}

// UserStatus marks whether an account may sign in.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User represents a user in the system.
type User struct {
	gorm.Model
	Username     string `gorm:"size:255;unique;not null"`
	Email        string `gorm:"size:255;unique;not null"`
	FullName     string `gorm:"size:255"`
	PasswordHash string `gorm:"size:255;not null"`
	Bio          string
	Status       UserStatus `gorm:"size:20;not null;default:'active'"`
	LastLoginAt  *time.Time `gorm:"index"`
	Roles        []Role     `gorm:"many2many:user_roles;"`
}

// HasRole reports whether the loaded role set contains name.
func (u *User) HasRole(name RoleName) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Role is a named permission set.
type Role struct {
	ID   uint     `gorm:"primaryKey"`
	Name RoleName `gorm:"size:50;unique;not null"`
}

// UserRole is the join row behind User.Roles.
type UserRole struct {
	UserID uint `gorm:"primaryKey"`
	RoleID uint `gorm:"primaryKey"`
}

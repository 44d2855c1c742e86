package models

import (
	"time"
)

// Role values are a closed set; workflow guards check membership against
// these constants rather than free-form strings.
const (
	RoleAlgorithmEngineer = "algorithm_engineer"
	RoleTeamLead          = "team_lead"
	RoleReviewer          = "reviewer"
	RoleProductManager    = "product_manager"
	RoleFrontendEngineer  = "frontend_engineer"
	RoleBusinessUser      = "business_user"
	RoleAdmin             = "admin"
)

type User struct {
	UserID   uint       `gorm:"primaryKey;column:user_id" json:"user_id"`
	Name     string     `gorm:"column:name" json:"name"`
	Email    string     `gorm:"column:email;unique" json:"email"`
	Password string     `gorm:"column:password" json:"-"`
	Role     string     `gorm:"column:role" json:"role"`
	Avatar   *string    `gorm:"column:avatar" json:"avatar,omitempty"`
	CreateAt *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (User) TableName() string {
	return "users"
}

// HasAnyRole reports whether the user's role is in the given set.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// ValidRole reports whether the value is one of the known role constants.
func ValidRole(role string) bool {
	switch role {
	case RoleAlgorithmEngineer, RoleTeamLead, RoleReviewer,
		RoleProductManager, RoleFrontendEngineer, RoleBusinessUser, RoleAdmin:
		return true
	}
	return false
}

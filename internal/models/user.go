package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleClinician  Role = "clinician"
	RoleResearcher Role = "researcher"
	RoleViewer     Role = "viewer"
)

type User struct {
	gorm.Model
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"not null" json:"role"`
	FullName string `json:"full_name"`
	Email    string `gorm:"uniqueIndex" json:"email"`
	ApiKey   string `gorm:"uniqueIndex" json:"-"`
	IsActive bool   `json:"is_active"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleClinician:
		return action != "manage_users" && action != "system_config"
	case RoleResearcher:
		return action == "view_patients" || action == "view_reports" || action == "manage_research"
	case RoleViewer:
		return action == "view_patients" || action == "view_reports"
	default:
		return false
	}
}

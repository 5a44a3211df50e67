package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is any account that can log in: the platform admin, a distributor, or a distributor's employee.
type User struct {
	BaseModel
	Name          string     `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Phone         string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone" validate:"required"`
	Password      string     `gorm:"type:varchar(255);not null" json:"-"`
	Role          Role       `gorm:"type:varchar(20);not null;default:'distributor'" json:"role"`
	DistributorID *uuid.UUID `gorm:"type:uuid;index" json:"distributor_id,omitempty"` // set for employees only
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	TokenVersion  string     `gorm:"type:varchar(255);default:''" json:"-"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
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

// ActingDistributorID is the tenant the user works for. Admins have none.
func (u *User) ActingDistributorID() uuid.UUID {
	switch u.Role {
	case RoleDistributor:
		return u.ID
	case RoleEmployee:
		if u.DistributorID != nil {
			return *u.DistributorID
		}
	}
	return uuid.Nil
}

type UserResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Role          Role       `json:"role"`
	DistributorID *uuid.UUID `json:"distributor_id,omitempty"`
	IsActive      bool       `json:"is_active"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`
	Privileges    []string   `json:"privileges"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Phone:         u.Phone,
		Role:          u.Role,
		DistributorID: u.DistributorID,
		IsActive:      u.IsActive,
		LastSeenAt:    u.LastSeenAt,
		Privileges:    PrivilegesFor(u.Role),
	}
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a club account. Membership is time-bounded: an account
// is a member while MemberUntil is set and in the future.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	PublicID    string         `gorm:"uniqueIndex;size:36;not null" json:"public_id"`
	Username    string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password    string         `gorm:"size:255" json:"-"` // bcrypt hash, empty for LDAP accounts
	Email       string         `gorm:"size:255" json:"email"`
	Nickname    string         `gorm:"size:100" json:"nickname"`
	Role        string         `gorm:"size:50;default:user" json:"role"`       // admin, user
	AuthType    string         `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	MemberUntil *time.Time     `json:"member_until"`
	BirthDate   *time.Time     `json:"birth_date"` // nil means age unknown
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	LastLogin   *time.Time     `json:"last_login"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// IsMember reports whether the account holds an active membership at now.
func (u *User) IsMember(now time.Time) bool {
	return u.MemberUntil != nil && now.Before(*u.MemberUntil)
}

// Age returns the account holder's age in full years at now, or nil when
// the birth date was never provided.
func (u *User) Age(now time.Time) *int {
	if u.BirthDate == nil {
		return nil
	}
	years := now.Year() - u.BirthDate.Year()
	anniversary := u.BirthDate.AddDate(years, 0, 0)
	if now.Before(anniversary) {
		years--
	}
	return &years
}

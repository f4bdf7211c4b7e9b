package domain

import "time"

// User is an account that owns projects and appears in presence lists.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"type:varchar(191);uniqueIndex:idx_username;not null" json:"username"`
	Email       string    `gorm:"type:varchar(191);uniqueIndex:idx_email" json:"email"`
	Password    string    `gorm:"type:text;not null" json:"-"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`
}

// Name returns the name shown to collaborators, falling back to the
// username when no display name is set.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

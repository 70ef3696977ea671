package models

import "time"

// AnonymousUserID is the well-known owner id assigned to links created
// without authentication. The matching row is seeded explicitly during
// migration and at server startup so that anonymous links keep referential
// integrity; callers must compare against this constant rather than rely on
// the row being present.
const AnonymousUserID uint = 1

// AnonymousUserEmail is the synthetic address of the sentinel owner row.
const AnonymousUserEmail = "anonymous@tinyurl.local"

// User is a registered account that owns links.
type User struct {
	ID             uint      `gorm:"primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	HashedPassword string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	LastLoginAt    *time.Time
	IsActive       bool `gorm:"not null;default:true"`
}

// IsAnonymous reports whether the user is the sentinel anonymous owner.
func (u *User) IsAnonymous() bool {
	return u.ID == AnonymousUserID
}

package models

import "time"

// Link is a shortened link record. The `gorm` tags describe the mapping to
// the links table; Alias carries the unique index that makes the store the
// authority on alias collisions.
type Link struct {
	ID         uint       `gorm:"primaryKey"`
	OwnerID    uint       `gorm:"index;not null"` // AnonymousUserID for unauthenticated creators
	Alias      string     `gorm:"uniqueIndex;size:16;not null"`
	TargetURL  string     `gorm:"not null"`
	CreatedAt  time.Time  `gorm:"autoCreateTime"`
	ExpiresAt  *time.Time `gorm:"index"` // nil means the link never expires
	LastUsedAt *time.Time
	VisitCount uint64 `gorm:"not null;default:0"`

	Owner User `gorm:"foreignKey:OwnerID"`
}

// IsExpired reports whether the link has an expiry date in the past.
// Expired links are treated as not found by every read path, even while the
// sweeper has not physically removed them yet.
func (l *Link) IsExpired() bool {
	if l.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*l.ExpiresAt)
}

package models

import "time"

// Challenge keeps the outstanding one-time code for an identity.
// There is exactly one row per identity; issuing a new code overwrites it.
type Challenge struct {
	Identity   string     `gorm:"primaryKey" json:"identity"`
	Code       string     `gorm:"not null" json:"-"`
	Attempts   int        `gorm:"not null;default:0" json:"attempts"`
	Consumed   bool       `gorm:"not null;default:false" json:"consumed"`
	ConsumedAt *time.Time `json:"consumed_at"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `gorm:"index" json:"expires_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsExpired reports whether the challenge can no longer be used at now.
func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsLive reports whether the challenge could still be verified at now.
func (c *Challenge) IsLive(now time.Time) bool {
	return !c.Consumed && !c.IsExpired(now)
}

package domain

import "time"

// Idempotency records the book produced by a POST /books request that carried
// an Idempotency-Key header. A retry with the same key inside the TTL window
// returns the recorded book instead of creating a second one.
type Idempotency struct {
	ID        string `gorm:"type:TEXT NOT NULL;primaryKey"`
	Key       string `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_idempotency_key"`
	// RequestHash fingerprints the original request; empty matches any.
	RequestHash string    `gorm:"type:TEXT NOT NULL;default:''"`
	BookID      int       `gorm:"type:INTEGER NOT NULL"`
	Status      int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt   time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt   time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Live reports whether the record is still valid at now.
func (r Idempotency) Live(now time.Time) bool { return now.Before(r.ExpiresAt) }

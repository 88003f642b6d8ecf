// Package repo implements the storage backends for books. This file provides
// the GORM helpers for the Idempotency model that makes POST /books safe to
// retry.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-books-backend/internal/domain"
)

// ErrDuplicate indicates that an idempotency record already exists for the key.
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns a non-expired record for key or ErrNotFound.
func (s *GormStore) GetIdempotency(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := s.DB.WithContext(ctx).
		Where("key = ? AND expires_at > ?", key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency records that key, sent with a request fingerprinted as
// requestHash, produced bookID with status. Expired
// rows for the same key are replaced; a live one yields ErrDuplicate.
func (s *GormStore) CreateIdempotency(ctx context.Context, key, requestHash string, bookID, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:          uuid.NewString(),
		Key:         key,
		RequestHash: requestHash,
		BookID:      bookID,
		Status:      status,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key = ? AND expires_at <= ?", key, now).Delete(&domain.Idempotency{}).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
	if err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

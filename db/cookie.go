package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionCookie is one persisted session entry (access token, refresh token or user ID).
type SessionCookie struct {
	Name      string    `gorm:"primaryKey" json:"name"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

// CookieRepository defines decoupled operations for session cookie persistence.
type CookieRepository interface {
	Get(ctx context.Context, name string) (*SessionCookie, error)
	PutAll(ctx context.Context, cookies ...SessionCookie) error
	Delete(ctx context.Context, names ...string) error
}

// gormCookieRepo is a GORM-backed implementation of CookieRepository.
type gormCookieRepo struct{ db *gorm.DB }

// NewCookieRepository creates a CookieRepository. Accepts *gorm.DB to avoid global access.
func NewCookieRepository(db *gorm.DB) CookieRepository { return &gormCookieRepo{db: db} }

// Get returns the named cookie, or nil when no row exists.
func (r *gormCookieRepo) Get(ctx context.Context, name string) (*SessionCookie, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var c SessionCookie
	err := r.db.WithContext(ctx).First(&c, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// PutAll upserts the given cookies in a single transaction.
func (r *gormCookieRepo) PutAll(ctx context.Context, cookies ...SessionCookie) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	if len(cookies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range cookies {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
			}).Create(&cookies[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the named cookies. Missing names are not an error.
func (r *gormCookieRepo) Delete(ctx context.Context, names ...string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	if len(names) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("name IN ?", names).Delete(&SessionCookie{}).Error
}

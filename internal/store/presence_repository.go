package store

import (
	"context"

	"slimechat/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PresenceRepository mirrors the in-memory session set into storage so the
// admin surface can read it without touching the hub. Failures here are
// non-fatal to the session lifecycle.
type PresenceRepository interface {
	Upsert(ctx context.Context, presence *models.Presence) error
	Remove(ctx context.Context, connectionID string) error
	Clear(ctx context.Context) error
}

type GormPresenceRepository struct {
	db *gorm.DB
}

func NewGormPresenceRepository(db *gorm.DB) *GormPresenceRepository {
	return &GormPresenceRepository{db: db}
}

func (r *GormPresenceRepository) Upsert(ctx context.Context, presence *models.Presence) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "connection_id"}},
			UpdateAll: true,
		}).
		Create(presence).Error
}

func (r *GormPresenceRepository) Remove(ctx context.Context, connectionID string) error {
	return r.db.WithContext(ctx).Delete(&models.Presence{}, "connection_id = ?", connectionID).Error
}

func (r *GormPresenceRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("DELETE FROM presences").Error
}

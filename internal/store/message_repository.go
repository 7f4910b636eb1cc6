package store

import (
	"context"
	"errors"

	"slimechat/backend/internal/models"

	"gorm.io/gorm"
)

// MessageRepository is the durable gateway for the message log. The hub only
// appends and reads recent history; the rest serves the admin surface and the
// retention service.
type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id string) (*models.Message, error)
	UpdateContent(ctx context.Context, id string, content string) (*models.Message, error)
	Delete(ctx context.Context, id string) error
	ListRecent(ctx context.Context, limit int) ([]models.Message, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Message, error)
	RetentionCutoff(ctx context.Context, keep int) (int64, error)
	DeleteBefore(ctx context.Context, cutoff int64) (int64, error)
	Vacuum(ctx context.Context) error
}

// ErrNotFound is returned when a referenced message does not exist
var ErrNotFound = errors.New("message not found")

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Append(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *GormMessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).First(&message, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *GormMessageRepository) UpdateContent(ctx context.Context, id string, content string) (*models.Message, error) {
	message, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	message.Content = content
	if err := r.db.WithContext(ctx).Model(message).Update("content", content).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (r *GormMessageRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Message{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormMessageRepository) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Order("unix_time DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *GormMessageRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("unix_time DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// RetentionCutoff returns the UnixTime of the message at rank keep when the
// log is ordered newest first, or 0 when fewer than keep+1 messages exist.
// Everything at or below the cutoff is past the retention cap. Messages
// sharing the cutoff timestamp are purged together, so a tie straddling the
// rank boundary can briefly leave fewer than keep messages.
func (r *GormMessageRepository) RetentionCutoff(ctx context.Context, keep int) (int64, error) {
	var times []int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Order("unix_time DESC").
		Offset(keep).
		Limit(1).
		Pluck("unix_time", &times).Error
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		return 0, nil
	}
	return times[0], nil
}

func (r *GormMessageRepository) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("unix_time <= ?", cutoff).Delete(&models.Message{})
	return res.RowsAffected, res.Error
}

// Vacuum reclaims file space after a purge. A no-op error on engines without
// VACUUM support is returned to the caller, which only logs it.
func (r *GormMessageRepository) Vacuum(ctx context.Context) error {
	return r.db.WithContext(ctx).Exec("VACUUM;").Error
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmorandi/mailbridge/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

type EmailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

// Upsert writes emails keyed by provider id, overwriting every column of
// an existing row. An empty batch is a no-op.
func (r *EmailRepository) Upsert(ctx context.Context, emails []models.Email) ([]models.Email, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert emails: %w", err)
	}
	return emails, nil
}

// GetByID fetches one email by provider id.
func (r *EmailRepository) GetByID(ctx context.Context, id string) (*models.Email, error) {
	var email models.Email
	err := r.db.WithContext(ctx).First(&email, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return &email, nil
}

// List returns stored emails newest first.
func (r *EmailRepository) List(ctx context.Context, limit, offset int) ([]models.Email, error) {
	if limit <= 0 {
		limit = 50
	}

	var emails []models.Email
	err := r.db.WithContext(ctx).
		Order("received_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&emails).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, nil
}

// MarkRead flags the given emails as read locally.
func (r *EmailRepository) MarkRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Model(&models.Email{}).
		Where("id IN ?", ids).
		Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark emails read: %w", err)
	}
	return nil
}

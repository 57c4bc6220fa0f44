package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmorandi/mailbridge/internal/models"
)

type SyncStateRepository struct {
	db *gorm.DB
}

func NewSyncStateRepository(db *gorm.DB) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// LastSyncedAt returns the watermark for a mailbox, or nil when the
// mailbox has never been synced.
func (r *SyncStateRepository) LastSyncedAt(ctx context.Context, mailbox string) (*time.Time, error) {
	var state models.SyncState
	err := r.db.WithContext(ctx).First(&state, "id = ?", mailbox).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return &state.LastSyncedAt, nil
}

// SetLastSyncedAt writes the watermark for a mailbox, last write wins.
func (r *SyncStateRepository) SetLastSyncedAt(ctx context.Context, mailbox string, t time.Time) error {
	state := models.SyncState{ID: mailbox, LastSyncedAt: t}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&state).Error
	if err != nil {
		return fmt.Errorf("failed to set sync state: %w", err)
	}
	return nil
}

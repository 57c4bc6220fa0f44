package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dmorandi/mailbridge/internal/models"
)

type BlocklistRepository struct {
	db *gorm.DB
}

func NewBlocklistRepository(db *gorm.DB) *BlocklistRepository {
	return &BlocklistRepository{db: db}
}

// Addresses loads the address denylist as a lowercased set.
func (r *BlocklistRepository) Addresses(ctx context.Context) (map[string]bool, error) {
	var senders []models.BlockedSender
	if err := r.db.WithContext(ctx).Find(&senders).Error; err != nil {
		return nil, fmt.Errorf("failed to load blocked senders: %w", err)
	}

	set := make(map[string]bool, len(senders))
	for _, s := range senders {
		set[strings.ToLower(s.Email)] = true
	}
	return set, nil
}

// Domains loads the domain denylist as a lowercased set.
func (r *BlocklistRepository) Domains(ctx context.Context) (map[string]bool, error) {
	var domains []models.BlockedDomain
	if err := r.db.WithContext(ctx).Find(&domains).Error; err != nil {
		return nil, fmt.Errorf("failed to load blocked domains: %w", err)
	}

	set := make(map[string]bool, len(domains))
	for _, d := range domains {
		set[strings.ToLower(d.Domain)] = true
	}
	return set, nil
}

// EscalateAddress inserts an address denylist entry, or bumps its hit
// counter when it already exists.
func (r *BlocklistRepository) EscalateAddress(ctx context.Context, email string) error {
	now := time.Now().UTC()
	sender := models.BlockedSender{
		Email:       strings.ToLower(email),
		Hits:        1,
		LastFiredAt: now,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"hits":          gorm.Expr("blocked_senders.hits + 1"),
				"last_fired_at": now,
			}),
		}).
		Create(&sender).Error
	if err != nil {
		return fmt.Errorf("failed to escalate blocked sender: %w", err)
	}
	return nil
}

// IncrementAddress bumps the hit counter of an existing address entry.
func (r *BlocklistRepository) IncrementAddress(ctx context.Context, email string) error {
	err := r.db.WithContext(ctx).
		Model(&models.BlockedSender{}).
		Where("email = ?", strings.ToLower(email)).
		Updates(map[string]interface{}{
			"hits":          gorm.Expr("hits + 1"),
			"last_fired_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to increment blocked sender: %w", err)
	}
	return nil
}

// IncrementDomain bumps the hit counter of an existing domain entry.
func (r *BlocklistRepository) IncrementDomain(ctx context.Context, domain string) error {
	err := r.db.WithContext(ctx).
		Model(&models.BlockedDomain{}).
		Where("domain = ?", strings.ToLower(domain)).
		Updates(map[string]interface{}{
			"hits":          gorm.Expr("hits + 1"),
			"last_fired_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to increment blocked domain: %w", err)
	}
	return nil
}

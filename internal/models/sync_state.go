package models

import "time"

// Mailbox roles tracked by the sync orchestrator
const (
	MailboxInbox = "inbox"
	MailboxSent  = "sent"
)

// SyncState holds the per-mailbox incremental sync watermark
type SyncState struct {
	ID           string    `gorm:"column:id;primaryKey"`
	LastSyncedAt time.Time `gorm:"column:last_synced_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (SyncState) TableName() string {
	return "sync_state"
}

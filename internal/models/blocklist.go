package models

import "time"

// BlockedSender is one address denylist entry. Email is stored lowercased.
type BlockedSender struct {
	Email       string    `gorm:"column:email;primaryKey"`
	Hits        int64     `gorm:"column:hits"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	LastFiredAt time.Time `gorm:"column:last_fired_at"`
}

// TableName specifies the table name for GORM
func (BlockedSender) TableName() string {
	return "blocked_senders"
}

// BlockedDomain is one domain denylist entry. Domain is stored lowercased.
type BlockedDomain struct {
	Domain      string    `gorm:"column:domain;primaryKey"`
	Hits        int64     `gorm:"column:hits"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	LastFiredAt time.Time `gorm:"column:last_fired_at"`
}

// TableName specifies the table name for GORM
func (BlockedDomain) TableName() string {
	return "blocked_domains"
}

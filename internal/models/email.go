package models

import "time"

// Email represents a synced message keyed by its provider id
type Email struct {
	ID             string         `json:"id" gorm:"column:id;primaryKey"`
	ThreadID       string         `json:"threadId" gorm:"column:thread_id;index"`
	Subject        string         `json:"subject" gorm:"column:subject"`
	FromEmail      string         `json:"fromEmail" gorm:"column:from_email;index"`
	FromName       string         `json:"fromName" gorm:"column:from_name"`
	ToRecipients   RecipientList  `json:"to" gorm:"column:to_recipients;type:jsonb"`
	CcRecipients   RecipientList  `json:"cc" gorm:"column:cc_recipients;type:jsonb"`
	ReceivedAt     time.Time      `json:"receivedAt" gorm:"column:received_at;index"`
	BodyText       string         `json:"bodyText" gorm:"column:body_text"`
	BodyHTML       string         `json:"bodyHtml" gorm:"column:body_html"`
	Snippet        string         `json:"snippet" gorm:"column:snippet"`
	IsRead         bool           `json:"isRead" gorm:"column:is_read"`
	IsStarred      bool           `json:"isStarred" gorm:"column:is_starred"`
	HasAttachments bool           `json:"hasAttachments" gorm:"column:has_attachments"`
	Attachments    AttachmentList `json:"attachments" gorm:"column:attachments;type:jsonb"`
	Labels         StringList     `json:"labels" gorm:"column:labels;type:jsonb"`
	CreatedAt      time.Time      `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Email) TableName() string {
	return "emails"
}

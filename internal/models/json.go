package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Recipient is a single to/cc entry as stored in JSON columns.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Attachment describes one attachment part of a stored email.
type Attachment struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Size   int64  `json:"size"`
	BlobID string `json:"blobId"`
}

// RecipientList type for GORM to handle JSONB recipient columns
type RecipientList []Recipient

// Value implements driver.Valuer for RecipientList
func (l RecipientList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for RecipientList
func (l *RecipientList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// AttachmentList type for GORM to handle JSONB attachment columns
type AttachmentList []Attachment

// Value implements driver.Valuer for AttachmentList
func (l AttachmentList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for AttachmentList
func (l *AttachmentList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// StringList type for GORM to handle JSONB string-array columns
type StringList []string

// Value implements driver.Valuer for StringList
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for StringList
func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// scanJSON handles both []byte (postgres) and string (sqlite) column values
func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return errors.New("type assertion to []byte or string failed")
	}
}

package jmap

import (
	"encoding/json"
	"time"
)

// Capability URNs advertised on every API request
const (
	CapCore       = "urn:ietf:params:jmap:core"
	CapMail       = "urn:ietf:params:jmap:mail"
	CapSubmission = "urn:ietf:params:jmap:submission"
)

// Keywords used by this system. The first three are standard JMAP
// keywords; KeywordDone marks messages already handled so incremental
// queries skip them.
const (
	KeywordSeen    = "$seen"
	KeywordFlagged = "$flagged"
	KeywordDraft   = "$draft"
	KeywordDone    = "$crm_done"
)

// Address is an email address with optional display name.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Mailbox is a folder on the server.
type Mailbox struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Role     string  `json:"role,omitempty"`
	ParentID *string `json:"parentId,omitempty"`
}

// BodyPart describes one MIME part of a message.
type BodyPart struct {
	PartID string `json:"partId,omitempty"`
	BlobID string `json:"blobId,omitempty"`
	Type   string `json:"type,omitempty"`
	Name   string `json:"name,omitempty"`
	Size   int64  `json:"size,omitempty"`
}

// BodyValue is the fetched content of one body part.
type BodyValue struct {
	Value       string `json:"value"`
	IsTruncated bool   `json:"isTruncated,omitempty"`
}

// Email is the wire shape returned by Email/get.
type Email struct {
	ID            string               `json:"id"`
	ThreadID      string               `json:"threadId"`
	MailboxIDs    map[string]bool      `json:"mailboxIds,omitempty"`
	Keywords      map[string]bool      `json:"keywords,omitempty"`
	Subject       string               `json:"subject"`
	From          []Address            `json:"from,omitempty"`
	To            []Address            `json:"to,omitempty"`
	Cc            []Address            `json:"cc,omitempty"`
	ReceivedAt    time.Time            `json:"receivedAt"`
	Preview       string               `json:"preview,omitempty"`
	BodyValues    map[string]BodyValue `json:"bodyValues,omitempty"`
	TextBody      []BodyPart           `json:"textBody,omitempty"`
	HTMLBody      []BodyPart           `json:"htmlBody,omitempty"`
	Attachments   []BodyPart           `json:"attachments,omitempty"`
	HasAttachment bool                 `json:"hasAttachment,omitempty"`
}

// Identity is a sending identity from Identity/get.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// SetError is the per-object rejection shape in notCreated/notUpdated maps.
type SetError struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

func (e SetError) String() string {
	if e.Description == "" {
		return e.Type
	}
	return e.Type + ": " + e.Description
}

// CreatedObject carries the server-assigned id of a created object.
type CreatedObject struct {
	ID string `json:"id"`
}

// SetResponse is the common shape of Email/set, Mailbox/set and
// EmailSubmission/set responses.
type SetResponse struct {
	Created    map[string]CreatedObject   `json:"created,omitempty"`
	NotCreated map[string]SetError        `json:"notCreated,omitempty"`
	Updated    map[string]json.RawMessage `json:"updated,omitempty"`
	NotUpdated map[string]SetError        `json:"notUpdated,omitempty"`
}

// QueryResponse is the shape of Email/query responses.
type QueryResponse struct {
	IDs      []string `json:"ids"`
	Position int      `json:"position,omitempty"`
	Total    int      `json:"total,omitempty"`
}

// EmailGetResponse is the shape of Email/get responses.
type EmailGetResponse struct {
	List     []Email  `json:"list"`
	NotFound []string `json:"notFound,omitempty"`
}

// MailboxGetResponse is the shape of Mailbox/get responses.
type MailboxGetResponse struct {
	List []Mailbox `json:"list"`
}

// IdentityGetResponse is the shape of Identity/get responses.
type IdentityGetResponse struct {
	List []Identity `json:"list"`
}

package jmap

import (
	"context"
	"fmt"
	"time"
)

// maxBodyBytes caps fetched body values per part.
const maxBodyBytes = 1000000

var emailProperties = []string{
	"id", "threadId", "mailboxIds", "keywords", "subject",
	"from", "to", "cc", "receivedAt", "preview",
	"textBody", "htmlBody", "attachments", "hasAttachment",
}

// EmailQuery selects messages of one mailbox, newest first.
type EmailQuery struct {
	MailboxID  string
	After      *time.Time
	NotKeyword string
	Limit      int
}

// QueryEmailIDs runs Email/query and returns the matching ids.
func (c *Client) QueryEmailIDs(ctx context.Context, q EmailQuery) ([]string, error) {
	filter := map[string]interface{}{
		"inMailbox": q.MailboxID,
	}
	if q.After != nil {
		filter["after"] = q.After.UTC().Format(time.RFC3339)
	}
	if q.NotKeyword != "" {
		filter["notKeyword"] = q.NotKeyword
	}

	req := NewRequest()
	label := req.Add("Email/query", map[string]interface{}{
		"accountId": c.session.AccountID,
		"filter":    filter,
		"sort":      []map[string]interface{}{{"property": "receivedAt", "isAscending": false}},
		"limit":     q.Limit,
	}, "query")

	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}

	var result QueryResponse
	if err := resp.Decode(label, &result); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return result.IDs, nil
}

// GetEmails runs Email/get with body values for the given ids.
func (c *Client) GetEmails(ctx context.Context, ids []string) ([]Email, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	req := NewRequest()
	label := req.Add("Email/get", map[string]interface{}{
		"accountId":           c.session.AccountID,
		"ids":                 ids,
		"properties":          emailProperties,
		"fetchTextBodyValues": true,
		"fetchHTMLBodyValues": true,
		"maxBodyValueBytes":   maxBodyBytes,
	}, "get")

	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get emails: %w", err)
	}

	var result EmailGetResponse
	if err := resp.Decode(label, &result); err != nil {
		return nil, fmt.Errorf("failed to decode get response: %w", err)
	}
	return result.List, nil
}

// FetchEmails queries one mailbox and fetches the full messages.
func (c *Client) FetchEmails(ctx context.Context, q EmailQuery) ([]Email, error) {
	ids, err := c.QueryEmailIDs(ctx, q)
	if err != nil {
		return nil, err
	}
	return c.GetEmails(ctx, ids)
}

// GetEmail fetches a single message by id.
func (c *Client) GetEmail(ctx context.Context, id string) (*Email, error) {
	emails, err := c.GetEmails(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, fmt.Errorf("email %s not found", id)
	}
	return &emails[0], nil
}

// UpdateEmail applies a single Email/set update patch. A per-message
// rejection is returned as *UpdateError.
func (c *Client) UpdateEmail(ctx context.Context, id string, patch map[string]interface{}) error {
	req := NewRequest()
	label := req.Add("Email/set", map[string]interface{}{
		"accountId": c.session.AccountID,
		"update":    map[string]interface{}{id: patch},
	}, "update")

	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}

	var result SetResponse
	if err := resp.Decode(label, &result); err != nil {
		return fmt.Errorf("failed to decode update response: %w", err)
	}
	if setErr, ok := result.NotUpdated[id]; ok {
		return &UpdateError{ID: id, Err: setErr}
	}
	return nil
}

// AddKeyword stamps a keyword on the given messages in one batch.
// Returns how many updates the server accepted and rejected.
func (c *Client) AddKeyword(ctx context.Context, ids []string, keyword string) (int, int, error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}

	update := make(map[string]interface{}, len(ids))
	for _, id := range ids {
		update[id] = map[string]interface{}{
			"keywords/" + keyword: true,
		}
	}

	req := NewRequest()
	label := req.Add("Email/set", map[string]interface{}{
		"accountId": c.session.AccountID,
		"update":    update,
	}, "stamp")

	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to stamp keyword: %w", err)
	}

	var result SetResponse
	if err := resp.Decode(label, &result); err != nil {
		return 0, 0, fmt.Errorf("failed to decode stamp response: %w", err)
	}
	return len(result.Updated), len(result.NotUpdated), nil
}

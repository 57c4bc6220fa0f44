package jmap

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Mailboxes lists all folders of the account.
func (c *Client) Mailboxes(ctx context.Context) ([]Mailbox, error) {
	req := NewRequest()
	label := req.Add("Mailbox/get", map[string]interface{}{
		"accountId": c.session.AccountID,
	}, "mailboxes")

	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to get mailboxes: %w", err)
	}

	var result MailboxGetResponse
	if err := resp.Decode(label, &result); err != nil {
		return nil, fmt.Errorf("failed to decode mailbox response: %w", err)
	}
	return result.List, nil
}

// MailboxIDs resolves the given roles to folder ids. Roles the account
// does not have are simply absent from the result.
func (c *Client) MailboxIDs(ctx context.Context, roles ...string) (map[string]string, error) {
	mailboxes, err := c.Mailboxes(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(roles))
	for _, role := range roles {
		wanted[role] = true
	}

	ids := make(map[string]string)
	for _, mb := range mailboxes {
		if wanted[mb.Role] {
			ids[mb.Role] = mb.ID
		}
	}
	return ids, nil
}

// GetOrCreateFolder resolves a folder by exact name, creating it at the
// top level when missing.
func (c *Client) GetOrCreateFolder(ctx context.Context, name string) (string, error) {
	mailboxes, err := c.Mailboxes(ctx)
	if err != nil {
		return "", err
	}
	for _, mb := range mailboxes {
		if mb.Name == name {
			return mb.ID, nil
		}
	}

	creationID := "folder-" + uuid.NewString()
	req := NewRequest()
	req.RecordCreation(creationID)
	label := req.Add("Mailbox/set", map[string]interface{}{
		"accountId": c.session.AccountID,
		"create": map[string]interface{}{
			creationID: map[string]interface{}{
				"name":     name,
				"parentId": nil,
			},
		},
	}, "create")

	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", name, err)
	}

	var result SetResponse
	if err := resp.Decode(label, &result); err != nil {
		return "", fmt.Errorf("failed to decode folder response: %w", err)
	}
	if setErr, ok := result.NotCreated[creationID]; ok {
		return "", fmt.Errorf("folder %s rejected: %s", name, setErr)
	}
	created, ok := result.Created[creationID]
	if !ok {
		return "", fmt.Errorf("folder %s not created", name)
	}
	return created.ID, nil
}

// MoveToFolder moves messages into a folder in one batch, optionally
// marking them read. Returns how many moves the server accepted and
// rejected.
func (c *Client) MoveToFolder(ctx context.Context, ids []string, folderID string, markRead bool) (int, int, error) {
	if len(ids) == 0 {
		return 0, 0, nil
	}

	update := make(map[string]interface{}, len(ids))
	for _, id := range ids {
		patch := map[string]interface{}{
			"mailboxIds": map[string]bool{folderID: true},
		}
		if markRead {
			patch["keywords/"+KeywordSeen] = true
		}
		update[id] = patch
	}

	req := NewRequest()
	label := req.Add("Email/set", map[string]interface{}{
		"accountId": c.session.AccountID,
		"update":    update,
	}, "move")

	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to move emails: %w", err)
	}

	var result SetResponse
	if err := resp.Decode(label, &result); err != nil {
		return 0, 0, fmt.Errorf("failed to decode move response: %w", err)
	}
	return len(result.Updated), len(result.NotUpdated), nil
}

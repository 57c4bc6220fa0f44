package jmap

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Draft is an outgoing message.
type Draft struct {
	To          []Address
	Cc          []Address
	Subject     string
	TextBody    string
	HTMLBody    string
	InReplyTo   []string
	References  []string
	Attachments []BodyPart
}

// SendResult reports the outcome of SendEmail. MessageID is the
// server-assigned id of the created draft; Submitted reports whether the
// submission was accepted.
type SendResult struct {
	MessageID string
	Submitted bool
}

// SendEmail creates a draft and submits it in a single batch. The
// submission references the draft by creation id, and on success the
// server moves it to Sent and clears the draft keyword. Per-object
// rejections come back as *SendRejectedError with the failing stage.
func (c *Client) SendEmail(ctx context.Context, draft Draft) (*SendResult, error) {
	identityID, err := c.sendingIdentity(ctx)
	if err != nil {
		return nil, err
	}

	boxes, err := c.MailboxIDs(ctx, "drafts", "sent")
	if err != nil {
		return nil, err
	}
	draftsID, ok := boxes["drafts"]
	if !ok {
		return nil, fmt.Errorf("drafts mailbox not found")
	}
	sentID, ok := boxes["sent"]
	if !ok {
		return nil, fmt.Errorf("sent mailbox not found")
	}

	draftID := "draft-" + uuid.NewString()
	submitID := "send-" + uuid.NewString()

	req := NewRequest()
	req.RecordCreation(draftID)
	createLabel := req.Add("Email/set", map[string]interface{}{
		"accountId": c.session.AccountID,
		"create": map[string]interface{}{
			draftID: c.draftObject(draft, draftsID),
		},
	}, "create")

	req.RecordCreation(submitID)
	submitLabel := req.Add("EmailSubmission/set", map[string]interface{}{
		"accountId": c.session.AccountID,
		"create": map[string]interface{}{
			submitID: map[string]interface{}{
				"identityId": identityID,
				"emailId":    req.CreationRef(draftID),
			},
		},
		"onSuccessUpdateEmail": map[string]interface{}{
			req.CreationRef(submitID): map[string]interface{}{
				"mailboxIds":             map[string]bool{sentID: true},
				"keywords/" + KeywordDraft: nil,
			},
		},
	}, "submit")

	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	var created SetResponse
	if err := resp.Decode(createLabel, &created); err != nil {
		return nil, fmt.Errorf("failed to decode create response: %w", err)
	}
	if setErr, ok := created.NotCreated[draftID]; ok {
		return nil, &SendRejectedError{Stage: "create", Err: setErr}
	}

	var submitted SetResponse
	if err := resp.Decode(submitLabel, &submitted); err != nil {
		return nil, fmt.Errorf("failed to decode submit response: %w", err)
	}
	if setErr, ok := submitted.NotCreated[submitID]; ok {
		return nil, &SendRejectedError{Stage: "submit", Err: setErr}
	}

	result := &SendResult{Submitted: true}
	if obj, ok := created.Created[draftID]; ok {
		result.MessageID = obj.ID
	}
	return result, nil
}

// sendingIdentity picks the first sending identity of the account.
func (c *Client) sendingIdentity(ctx context.Context) (string, error) {
	req := NewRequest()
	label := req.Add("Identity/get", map[string]interface{}{
		"accountId": c.session.AccountID,
	}, "identity")

	resp, err := c.Invoke(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to get identities: %w", err)
	}

	var result IdentityGetResponse
	if err := resp.Decode(label, &result); err != nil {
		return "", fmt.Errorf("failed to decode identity response: %w", err)
	}
	if len(result.List) == 0 {
		return "", fmt.Errorf("no sending identity available")
	}
	return result.List[0].ID, nil
}

// draftObject builds the Email/set create map for a draft.
func (c *Client) draftObject(draft Draft, draftsID string) map[string]interface{} {
	bodyValues := map[string]interface{}{
		"body": map[string]interface{}{
			"value":   draft.TextBody,
			"charset": "utf-8",
		},
	}
	obj := map[string]interface{}{
		"mailboxIds": map[string]bool{draftsID: true},
		"from":       []Address{{Email: c.username}},
		"to":         draft.To,
		"subject":    draft.Subject,
		"keywords":   map[string]bool{KeywordDraft: true},
		"bodyValues": bodyValues,
		"textBody": []map[string]interface{}{
			{"partId": "body", "type": "text/plain"},
		},
	}
	if len(draft.Cc) > 0 {
		obj["cc"] = draft.Cc
	}
	if draft.HTMLBody != "" {
		bodyValues["htmlBody"] = map[string]interface{}{
			"value":   draft.HTMLBody,
			"charset": "utf-8",
		}
		obj["htmlBody"] = []map[string]interface{}{
			{"partId": "htmlBody", "type": "text/html"},
		}
	}
	if len(draft.InReplyTo) > 0 {
		obj["inReplyTo"] = draft.InReplyTo
	}
	if len(draft.References) > 0 {
		obj["references"] = draft.References
	}
	if len(draft.Attachments) > 0 {
		obj["attachments"] = draft.Attachments
	}
	return obj
}

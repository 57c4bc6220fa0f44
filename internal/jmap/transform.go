package jmap

import (
	"sort"

	"github.com/dmorandi/mailbridge/internal/models"
)

// Normalize maps a wire email onto the stored shape. It is pure: the
// same input always yields the same row.
func Normalize(wire Email) models.Email {
	email := models.Email{
		ID:             wire.ID,
		ThreadID:       wire.ThreadID,
		Subject:        wire.Subject,
		ReceivedAt:     wire.ReceivedAt,
		Snippet:        wire.Preview,
		BodyText:       bodyContent(wire, wire.TextBody),
		BodyHTML:       bodyContent(wire, wire.HTMLBody),
		IsRead:         wire.Keywords[KeywordSeen],
		IsStarred:      wire.Keywords[KeywordFlagged],
		HasAttachments: wire.HasAttachment,
		ToRecipients:   recipients(wire.To),
		CcRecipients:   recipients(wire.Cc),
	}

	if len(wire.From) > 0 {
		email.FromEmail = wire.From[0].Email
		email.FromName = wire.From[0].Name
	}

	for _, part := range wire.Attachments {
		email.Attachments = append(email.Attachments, models.Attachment{
			Name:   part.Name,
			Type:   part.Type,
			Size:   part.Size,
			BlobID: part.BlobID,
		})
	}

	// Keywords carry over verbatim, sorted so the stored set is stable.
	if len(wire.Keywords) > 0 {
		labels := make(models.StringList, 0, len(wire.Keywords))
		for keyword := range wire.Keywords {
			labels = append(labels, keyword)
		}
		sort.Strings(labels)
		email.Labels = labels
	}

	return email
}

// bodyContent resolves the first part of a body list through the
// bodyValues table. Missing parts or values yield "".
func bodyContent(wire Email, parts []BodyPart) string {
	if len(parts) == 0 {
		return ""
	}
	if value, ok := wire.BodyValues[parts[0].PartID]; ok {
		return value.Value
	}
	return ""
}

func recipients(addresses []Address) models.RecipientList {
	if len(addresses) == 0 {
		return nil
	}
	list := make(models.RecipientList, 0, len(addresses))
	for _, addr := range addresses {
		list = append(list, models.Recipient{Email: addr.Email, Name: addr.Name})
	}
	return list
}

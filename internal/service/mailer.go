package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmorandi/mailbridge/internal/jmap"
	"github.com/dmorandi/mailbridge/internal/logging"
	"github.com/dmorandi/mailbridge/internal/models"
	"github.com/dmorandi/mailbridge/internal/repository"
)

const forwardedHeader = "---------- Forwarded message ---------"

// SendClient is the provider surface the mailer needs.
type SendClient interface {
	SendEmail(ctx context.Context, draft jmap.Draft) (*jmap.SendResult, error)
	MailboxIDs(ctx context.Context, roles ...string) (map[string]string, error)
	UpdateEmail(ctx context.Context, id string, patch map[string]interface{}) error
	AddKeyword(ctx context.Context, ids []string, keyword string) (int, int, error)
	UploadBlob(ctx context.Context, data []byte, contentType string) (*jmap.BlobInfo, error)
	DownloadBlob(ctx context.Context, blobID, name, contentType string) (*jmap.BlobDownload, error)
}

// SendOpenFunc opens a fresh provider client for one operation.
type SendOpenFunc func(ctx context.Context) (SendClient, error)

// MessageStore is the local store surface the mailer needs.
type MessageStore interface {
	GetByID(ctx context.Context, id string) (*models.Email, error)
	MarkRead(ctx context.Context, ids []string) error
}

// Resyncer schedules a sync pass after an operation changed the mailbox.
type Resyncer interface {
	TriggerSoon(delay time.Duration)
}

// AttachmentUpload is one attachment to upload before sending.
type AttachmentUpload struct {
	Name string
	Type string
	Data []byte
}

// SendInput describes an outgoing message.
type SendInput struct {
	To          []jmap.Address
	Cc          []jmap.Address
	Subject     string
	TextBody    string
	HTMLBody    string
	InReplyTo   []string
	References  []string
	Attachments []AttachmentUpload
}

// Mailer implements the compose operations: send, reply, forward,
// archive and mark-as-read.
type Mailer struct {
	open        SendOpenFunc
	store       MessageStore
	resync      Resyncer
	selfAddress string
	resyncDelay time.Duration
}

func NewMailer(open SendOpenFunc, store MessageStore, resync Resyncer, selfAddress string, resyncDelay time.Duration) *Mailer {
	return &Mailer{
		open:        open,
		store:       store,
		resync:      resync,
		selfAddress: selfAddress,
		resyncDelay: resyncDelay,
	}
}

// Send uploads any attachments, then creates and submits the message.
func (m *Mailer) Send(ctx context.Context, in SendInput) (*jmap.SendResult, error) {
	client, err := m.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open mail client: %w", err)
	}
	return m.send(ctx, client, in)
}

// Reply sends a reply to a stored message. The recipient list is
// resolved from the original before any provider call; an empty list is
// ErrNoRecipients.
func (m *Mailer) Reply(ctx context.Context, id, textBody, htmlBody string, replyAll bool) (*jmap.SendResult, error) {
	original, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	to, cc := m.replyRecipients(original, replyAll)
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}

	subject := original.Subject
	if !strings.HasPrefix(subject, "Re: ") {
		subject = "Re: " + subject
	}

	client, err := m.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open mail client: %w", err)
	}
	return m.send(ctx, client, SendInput{
		To:         to,
		Cc:         cc,
		Subject:    subject,
		TextBody:   textBody,
		HTMLBody:   htmlBody,
		InReplyTo:  []string{original.ID},
		References: []string{original.ID},
	})
}

// Forward sends a stored message to new recipients, with an optional
// lead-in above the quoted original.
func (m *Mailer) Forward(ctx context.Context, id string, to, cc []jmap.Address, leadIn string) (*jmap.SendResult, error) {
	original, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(to) == 0 {
		return nil, ErrNoRecipients
	}

	subject := original.Subject
	if !strings.HasPrefix(subject, "Fwd: ") {
		subject = "Fwd: " + subject
	}

	client, err := m.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open mail client: %w", err)
	}
	return m.send(ctx, client, SendInput{
		To:       to,
		Cc:       cc,
		Subject:  subject,
		TextBody: forwardBody(leadIn, original),
	})
}

// Archive moves a message to the archive folder and stamps it done.
func (m *Mailer) Archive(ctx context.Context, providerID string) error {
	client, err := m.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open mail client: %w", err)
	}

	boxes, err := client.MailboxIDs(ctx, "archive")
	if err != nil {
		return err
	}
	archiveID, ok := boxes["archive"]
	if !ok {
		return fmt.Errorf("archive mailbox not found")
	}

	err = client.UpdateEmail(ctx, providerID, map[string]interface{}{
		"mailboxIds":                  map[string]bool{archiveID: true},
		"keywords/" + jmap.KeywordDone: true,
	})
	if err != nil {
		var updateErr *jmap.UpdateError
		if errors.As(err, &updateErr) && updateErr.Err.Type == "notFound" {
			return repository.ErrNotFound
		}
		return err
	}
	return nil
}

// MarkRead stamps the seen keyword remotely and mirrors it locally.
func (m *Mailer) MarkRead(ctx context.Context, ids []string) (int, error) {
	client, err := m.open(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to open mail client: %w", err)
	}

	updated, failed, err := client.AddKeyword(ctx, ids, jmap.KeywordSeen)
	if err != nil {
		return 0, err
	}
	if failed > 0 {
		logging.Log.WithField("failed", failed).Warn("some messages not marked read")
	}

	if err := m.store.MarkRead(ctx, ids); err != nil {
		logging.Log.WithError(err).Warn("failed to mark messages read locally")
	}
	return updated, nil
}

// DownloadAttachment streams one attachment blob from the provider.
func (m *Mailer) DownloadAttachment(ctx context.Context, blobID, name, contentType string) (*jmap.BlobDownload, error) {
	client, err := m.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open mail client: %w", err)
	}
	return client.DownloadBlob(ctx, blobID, name, contentType)
}

func (m *Mailer) send(ctx context.Context, client SendClient, in SendInput) (*jmap.SendResult, error) {
	var attachments []jmap.BodyPart
	for _, upload := range in.Attachments {
		blob, err := client.UploadBlob(ctx, upload.Data, upload.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to upload attachment %s: %w", upload.Name, err)
		}
		attachments = append(attachments, jmap.BodyPart{
			BlobID: blob.BlobID,
			Type:   upload.Type,
			Name:   upload.Name,
			Size:   blob.Size,
		})
	}

	result, err := client.SendEmail(ctx, jmap.Draft{
		To:          in.To,
		Cc:          in.Cc,
		Subject:     in.Subject,
		TextBody:    in.TextBody,
		HTMLBody:    in.HTMLBody,
		InReplyTo:   in.InReplyTo,
		References:  in.References,
		Attachments: attachments,
	})
	if err != nil {
		return nil, err
	}

	// Stamp the sent message so the next sync pass skips it. Best
	// effort, the message is already on its way.
	if result.MessageID != "" {
		if _, _, err := client.AddKeyword(ctx, []string{result.MessageID}, jmap.KeywordDone); err != nil {
			logging.Log.WithError(err).Warn("failed to stamp sent message")
		}
	}

	m.resync.TriggerSoon(m.resyncDelay)
	return result, nil
}

// replyRecipients resolves who a reply goes to. Replies to our own sent
// mail go back to its recipients; otherwise to the original sender. Cc
// only carries over on replyAll, minus our own address.
func (m *Mailer) replyRecipients(original *models.Email, replyAll bool) ([]jmap.Address, []jmap.Address) {
	var to []jmap.Address
	if strings.EqualFold(original.FromEmail, m.selfAddress) {
		for _, r := range original.ToRecipients {
			to = append(to, jmap.Address{Email: r.Email, Name: r.Name})
		}
	} else if original.FromEmail != "" {
		to = []jmap.Address{{Email: original.FromEmail, Name: original.FromName}}
	}

	var cc []jmap.Address
	if replyAll {
		for _, r := range original.CcRecipients {
			if strings.EqualFold(r.Email, m.selfAddress) {
				continue
			}
			cc = append(cc, jmap.Address{Email: r.Email, Name: r.Name})
		}
	}
	return to, cc
}

func forwardBody(leadIn string, original *models.Email) string {
	quoted := original.BodyText
	if quoted == "" {
		quoted = original.Snippet
	}

	var recipients []string
	for _, r := range original.ToRecipients {
		recipients = append(recipients, r.Email)
	}

	return fmt.Sprintf("%s\n%s\nFrom: %s <%s>\nDate: %s\nSubject: %s\nTo: %s\n\n%s",
		leadIn,
		forwardedHeader,
		original.FromName,
		original.FromEmail,
		original.ReceivedAt.Format(time.RFC1123),
		original.Subject,
		strings.Join(recipients, ", "),
		quoted,
	)
}

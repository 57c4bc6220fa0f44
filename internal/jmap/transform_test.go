package jmap

import (
	"reflect"
	"testing"
	"time"

	"github.com/dmorandi/mailbridge/internal/models"
)

func sampleWireEmail() Email {
	received := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	return Email{
		ID:       "m1",
		ThreadID: "t1",
		Subject:  "Quarterly report",
		From:     []Address{{Email: "alice@example.com", Name: "Alice"}},
		To: []Address{
			{Email: "me@example.com", Name: "Me"},
			{Email: "bob@example.com"},
		},
		Cc:         []Address{{Email: "carol@example.com", Name: "Carol"}},
		ReceivedAt: received,
		Preview:    "Please find attached...",
		Keywords: map[string]bool{
			KeywordSeen:    true,
			KeywordFlagged: true,
			"$answered":    true,
		},
		BodyValues: map[string]BodyValue{
			"p1": {Value: "plain body"},
			"p2": {Value: "<p>html body</p>"},
		},
		TextBody:      []BodyPart{{PartID: "p1", Type: "text/plain"}},
		HTMLBody:      []BodyPart{{PartID: "p2", Type: "text/html"}},
		HasAttachment: true,
		Attachments: []BodyPart{
			{BlobID: "blob1", Type: "application/pdf", Name: "report.pdf", Size: 2048},
		},
	}
}

func TestNormalize(t *testing.T) {
	email := Normalize(sampleWireEmail())

	if email.ID != "m1" || email.ThreadID != "t1" {
		t.Errorf("unexpected ids: %s / %s", email.ID, email.ThreadID)
	}
	if email.FromEmail != "alice@example.com" || email.FromName != "Alice" {
		t.Errorf("unexpected sender: %s <%s>", email.FromName, email.FromEmail)
	}
	if email.BodyText != "plain body" {
		t.Errorf("unexpected body text: %q", email.BodyText)
	}
	if email.BodyHTML != "<p>html body</p>" {
		t.Errorf("unexpected body html: %q", email.BodyHTML)
	}
	if email.Snippet != "Please find attached..." {
		t.Errorf("unexpected snippet: %q", email.Snippet)
	}
	if !email.IsRead || !email.IsStarred {
		t.Errorf("expected read and starred flags, got %v / %v", email.IsRead, email.IsStarred)
	}
	if !email.HasAttachments || len(email.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %v", email.Attachments)
	}
	if email.Attachments[0].BlobID != "blob1" || email.Attachments[0].Size != 2048 {
		t.Errorf("unexpected attachment: %+v", email.Attachments[0])
	}
	if len(email.ToRecipients) != 2 || email.ToRecipients[1].Email != "bob@example.com" {
		t.Errorf("unexpected to recipients: %v", email.ToRecipients)
	}
	if len(email.CcRecipients) != 1 || email.CcRecipients[0].Name != "Carol" {
		t.Errorf("unexpected cc recipients: %v", email.CcRecipients)
	}

	// Keywords are kept verbatim, sorted.
	want := models.StringList{"$answered", KeywordFlagged, KeywordSeen}
	if !reflect.DeepEqual(email.Labels, want) {
		t.Errorf("expected labels %v, got %v", want, email.Labels)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	wire := sampleWireEmail()
	first := Normalize(wire)
	for i := 0; i < 10; i++ {
		if got := Normalize(wire); !reflect.DeepEqual(got, first) {
			t.Fatalf("normalize not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestNormalize_MissingOptionals(t *testing.T) {
	email := Normalize(Email{ID: "m2", ReceivedAt: time.Now()})

	if email.FromEmail != "" || email.FromName != "" {
		t.Errorf("expected empty sender, got %s <%s>", email.FromName, email.FromEmail)
	}
	if email.BodyText != "" || email.BodyHTML != "" {
		t.Errorf("expected empty bodies, got %q / %q", email.BodyText, email.BodyHTML)
	}
	if email.IsRead || email.IsStarred || email.HasAttachments {
		t.Error("expected all flags false")
	}
	if email.ToRecipients != nil || email.Attachments != nil || email.Labels != nil {
		t.Error("expected nil lists for absent fields")
	}
}

func TestNormalize_BodyPartWithoutValue(t *testing.T) {
	wire := Email{
		ID:       "m3",
		TextBody: []BodyPart{{PartID: "p9", Type: "text/plain"}},
	}
	if got := Normalize(wire).BodyText; got != "" {
		t.Errorf("expected empty body for missing body value, got %q", got)
	}
}

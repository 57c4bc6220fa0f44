package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dmorandi/mailbridge/internal/jmap"
	"github.com/dmorandi/mailbridge/internal/logging"
	"github.com/dmorandi/mailbridge/internal/models"
)

// Quarantine folders, resolved or created by name once per pass.
const (
	QuarantineAddressFolder = "Skip_Email"
	QuarantineDomainFolder  = "Skip_Domain"
)

// MailClient is the provider surface the syncer needs.
type MailClient interface {
	MailboxIDs(ctx context.Context, roles ...string) (map[string]string, error)
	FetchEmails(ctx context.Context, q jmap.EmailQuery) ([]jmap.Email, error)
	GetOrCreateFolder(ctx context.Context, name string) (string, error)
	MoveToFolder(ctx context.Context, ids []string, folderID string, markRead bool) (int, int, error)
}

// OpenFunc opens a fresh provider client for one pass.
type OpenFunc func(ctx context.Context) (MailClient, error)

// EmailStore persists normalized messages.
type EmailStore interface {
	Upsert(ctx context.Context, emails []models.Email) ([]models.Email, error)
}

// SyncStateStore persists per-mailbox watermarks.
type SyncStateStore interface {
	LastSyncedAt(ctx context.Context, mailbox string) (*time.Time, error)
	SetLastSyncedAt(ctx context.Context, mailbox string, t time.Time) error
}

// Syncer runs incremental sync passes over the inbox and sent
// mailboxes. Passes never overlap.
type Syncer struct {
	open         OpenFunc
	emails       EmailStore
	state        SyncStateStore
	blocklist    BlocklistStore
	selfAddress  string
	namePatterns []string
	pageSize     int

	mu sync.Mutex

	statusMu  sync.RWMutex
	lastSync  time.Time
	syncCount int
}

func NewSyncer(
	open OpenFunc,
	emails EmailStore,
	state SyncStateStore,
	blocklist BlocklistStore,
	selfAddress string,
	namePatterns []string,
	pageSize int,
) *Syncer {
	return &Syncer{
		open:         open,
		emails:       emails,
		state:        state,
		blocklist:    blocklist,
		selfAddress:  selfAddress,
		namePatterns: namePatterns,
		pageSize:     pageSize,
	}
}

// SyncAll runs one full pass over inbox and sent.
func (s *Syncer) SyncAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.syncPass(ctx, []string{models.MailboxInbox, models.MailboxSent}, s.pageSize)
	return err
}

// SyncInbox runs one inbox-only pass and returns the accepted messages.
func (s *Syncer) SyncInbox(ctx context.Context, limit int) ([]models.Email, error) {
	if limit <= 0 || limit > s.pageSize {
		limit = s.pageSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.syncPass(ctx, []string{models.MailboxInbox}, limit)
}

// TriggerSoon schedules a single delayed full pass, used after a send so
// the new message shows up without waiting for the next tick.
func (s *Syncer) TriggerSoon(delay time.Duration) {
	time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.SyncAll(ctx); err != nil {
			logging.Log.WithError(err).Warn("post-send sync failed")
		}
	})
}

// Status reports the last completed pass and the cumulative pass count.
func (s *Syncer) Status() (time.Time, int) {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.lastSync, s.syncCount
}

func (s *Syncer) syncPass(ctx context.Context, roles []string, limit int) ([]models.Email, error) {
	client, err := s.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open mail client: %w", err)
	}

	boxes, err := client.MailboxIDs(ctx, roles...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mailboxes: %w", err)
	}

	filter := NewSpamFilter(s.blocklist, s.selfAddress, s.namePatterns)
	if err := filter.Load(ctx); err != nil {
		return nil, err
	}

	var fetched []jmap.Email
	watermarks := make(map[string]*time.Time, len(roles))
	newest := make(map[string]time.Time, len(roles))

	for _, role := range roles {
		mailboxID, ok := boxes[role]
		if !ok {
			logging.Log.WithField("mailbox", role).Warn("mailbox role not found, skipping")
			continue
		}

		since, err := s.state.LastSyncedAt(ctx, role)
		if err != nil {
			return nil, err
		}
		watermarks[role] = since

		emails, err := client.FetchEmails(ctx, jmap.EmailQuery{
			MailboxID:  mailboxID,
			After:      since,
			NotKeyword: jmap.KeywordDone,
			Limit:      limit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", role, err)
		}

		for _, email := range emails {
			if email.ReceivedAt.After(newest[role]) {
				newest[role] = email.ReceivedAt
			}
		}
		fetched = append(fetched, emails...)
	}

	// A message can sit in several synced mailboxes at once; keep the
	// first occurrence only.
	seen := make(map[string]bool, len(fetched))
	unique := fetched[:0]
	for _, email := range fetched {
		if seen[email.ID] {
			continue
		}
		seen[email.ID] = true
		unique = append(unique, email)
	}

	var accepted []models.Email
	var blockedByAddress, blockedByDomain []string
	for _, wire := range unique {
		email := jmap.Normalize(wire)
		decision, err := filter.Classify(ctx, email)
		if err != nil {
			return nil, err
		}
		switch decision {
		case BlockByAddress:
			blockedByAddress = append(blockedByAddress, email.ID)
		case BlockByDomain:
			blockedByDomain = append(blockedByDomain, email.ID)
		default:
			accepted = append(accepted, email)
		}
	}

	stored, err := s.emails.Upsert(ctx, accepted)
	if err != nil {
		return nil, err
	}

	s.quarantine(ctx, client, blockedByAddress, QuarantineAddressFolder)
	s.quarantine(ctx, client, blockedByDomain, QuarantineDomainFolder)

	for _, role := range roles {
		latest, ok := newest[role]
		if !ok {
			continue
		}
		prev := watermarks[role]
		if prev != nil && !latest.After(*prev) {
			continue
		}
		if err := s.state.SetLastSyncedAt(ctx, role, latest); err != nil {
			return nil, err
		}
	}

	s.statusMu.Lock()
	s.lastSync = time.Now().UTC()
	s.syncCount++
	s.statusMu.Unlock()

	logging.Log.WithFields(logrus.Fields{
		"fetched":  len(unique),
		"accepted": len(accepted),
		"blocked":  len(blockedByAddress) + len(blockedByDomain),
	}).Info("sync pass completed")

	return stored, nil
}

// quarantine moves blocked messages out of the synced mailboxes. Best
// effort: failures are logged and the pass continues.
func (s *Syncer) quarantine(ctx context.Context, client MailClient, ids []string, folder string) {
	if len(ids) == 0 {
		return
	}

	folderID, err := client.GetOrCreateFolder(ctx, folder)
	if err != nil {
		logging.Log.WithError(err).WithField("folder", folder).Warn("failed to resolve quarantine folder")
		return
	}

	moved, failed, err := client.MoveToFolder(ctx, ids, folderID, true)
	if err != nil {
		logging.Log.WithError(err).WithField("folder", folder).Warn("failed to quarantine messages")
		return
	}
	if failed > 0 {
		logging.Log.WithFields(logrus.Fields{
			"folder": folder,
			"moved":  moved,
			"failed": failed,
		}).Warn("some messages not quarantined")
	}
}

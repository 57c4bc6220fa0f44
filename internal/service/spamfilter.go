package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmorandi/mailbridge/internal/models"
)

// Decision is the outcome of classifying one message.
type Decision int

const (
	Accept Decision = iota
	BlockByAddress
	BlockByDomain
)

// BlocklistStore persists denylist entries and counters.
type BlocklistStore interface {
	Addresses(ctx context.Context) (map[string]bool, error)
	Domains(ctx context.Context) (map[string]bool, error)
	EscalateAddress(ctx context.Context, email string) error
	IncrementAddress(ctx context.Context, email string) error
	IncrementDomain(ctx context.Context, domain string) error
}

// SpamFilter classifies messages against denylist snapshots loaded once
// per sync pass. Name-pattern matches escalate into the in-memory
// address set, so later messages of the same pass hit the address path.
type SpamFilter struct {
	store        BlocklistStore
	selfAddress  string
	namePatterns []string
	addresses    map[string]bool
	domains      map[string]bool
}

func NewSpamFilter(store BlocklistStore, selfAddress string, namePatterns []string) *SpamFilter {
	return &SpamFilter{
		store:        store,
		selfAddress:  strings.ToLower(selfAddress),
		namePatterns: namePatterns,
		addresses:    make(map[string]bool),
		domains:      make(map[string]bool),
	}
}

// Load snapshots both denylists.
func (f *SpamFilter) Load(ctx context.Context) error {
	addresses, err := f.store.Addresses(ctx)
	if err != nil {
		return fmt.Errorf("failed to load address denylist: %w", err)
	}
	domains, err := f.store.Domains(ctx)
	if err != nil {
		return fmt.Errorf("failed to load domain denylist: %w", err)
	}
	f.addresses = addresses
	f.domains = domains
	return nil
}

// Classify applies the precedence order: own address, display-name
// pattern, address denylist, domain denylist. Counter writes happen
// synchronously before the decision is returned.
func (f *SpamFilter) Classify(ctx context.Context, email models.Email) (Decision, error) {
	from := strings.ToLower(email.FromEmail)

	if from != "" && from == f.selfAddress {
		return Accept, nil
	}

	if from != "" && f.matchesNamePattern(email.FromName) {
		if err := f.store.EscalateAddress(ctx, from); err != nil {
			return Accept, fmt.Errorf("failed to escalate sender %s: %w", from, err)
		}
		f.addresses[from] = true
		return BlockByAddress, nil
	}

	if f.addresses[from] {
		if err := f.store.IncrementAddress(ctx, from); err != nil {
			return Accept, fmt.Errorf("failed to count sender %s: %w", from, err)
		}
		return BlockByAddress, nil
	}

	if domain := domainOf(from); domain != "" && f.domains[domain] {
		if err := f.store.IncrementDomain(ctx, domain); err != nil {
			return Accept, fmt.Errorf("failed to count domain %s: %w", domain, err)
		}
		return BlockByDomain, nil
	}

	return Accept, nil
}

func (f *SpamFilter) matchesNamePattern(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, pattern := range f.namePatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func domainOf(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

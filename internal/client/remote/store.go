// Package remote is the user-scoped journal store backed by the hosted
// server.
//
// Reads favour availability: a failed list or preferences read is logged
// and returned as an empty result. Writes always report their failure.
package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/dmitrijs2005/migrainelog/internal/rpc"
)

// Client is the part of the server API the store needs.
type Client interface {
	InitUser(ctx context.Context, req rpc.InitUserRequest) (bool, error)
	AddEntry(ctx context.Context, userID string, in models.EntryInput) (models.ID, error)
	UpdateEntry(ctx context.Context, id models.ID, patch models.EntryPatch) error
	DeleteEntry(ctx context.Context, id models.ID) error
	GetEntry(ctx context.Context, id models.ID) (rpc.Entry, error)
	ListEntries(ctx context.Context, req rpc.ListEntriesRequest) ([]rpc.Entry, error)
	ListEntriesInRange(ctx context.Context, userID string, from, to time.Time) ([]rpc.Entry, error)
	GetPreferences(ctx context.Context, userID string) (map[string]any, error)
	SetPreferences(ctx context.Context, userID string, prefs map[string]any) error
}

type Store struct {
	client Client
	log    logging.Logger
}

func New(client Client, log logging.Logger) *Store {
	return &Store{client: client, log: log.With("module", "remote_store")}
}

// Profile holds the fields copied onto a new user document.
type Profile struct {
	DisplayName string
	Email       string
}

type BootstrapStatus int

const (
	BootstrapCreated BootstrapStatus = iota
	BootstrapExisting
	BootstrapDegraded
)

func (s BootstrapStatus) String() string {
	switch s {
	case BootstrapCreated:
		return "created"
	case BootstrapExisting:
		return "existing"
	case BootstrapDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("BootstrapStatus(%d)", int(s))
	}
}

// BootstrapResult reports how InitializeUserDocument went. Err is only set
// for BootstrapDegraded.
type BootstrapResult struct {
	Status BootstrapStatus
	Err    error
}

// InitializeUserDocument creates the user's document with empty preferences
// if it does not exist yet. It never fails: a backend error yields
// BootstrapDegraded, and later reads treat the missing document as empty.
func (s *Store) InitializeUserDocument(ctx context.Context, userID string, p Profile) BootstrapResult {
	created, err := s.client.InitUser(ctx, rpc.InitUserRequest{UserID: userID, DisplayName: p.DisplayName, Email: p.Email})
	if err != nil {
		s.log.Warn(ctx, "user document bootstrap degraded", "user", userID, "error", err)
		return BootstrapResult{Status: BootstrapDegraded, Err: err}
	}
	if created {
		s.log.Info(ctx, "user document created", "user", userID)
		return BootstrapResult{Status: BootstrapCreated}
	}
	return BootstrapResult{Status: BootstrapExisting}
}

// AddEntry stores a new entry for userID and returns the id the server
// assigned. Timestamps are set by the server.
func (s *Store) AddEntry(ctx context.Context, userID string, in models.EntryInput) (models.ID, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return "", err
	}
	id, err := s.client.AddEntry(ctx, userID, in)
	if err != nil {
		return "", fmt.Errorf("add remote entry: %w", err)
	}
	return id, nil
}

// UpdateEntry applies a partial update. Concurrent updates from other
// devices are last-write-wins.
func (s *Store) UpdateEntry(ctx context.Context, id models.ID, patch models.EntryPatch) error {
	if err := s.client.UpdateEntry(ctx, id.Canonical(), patch); err != nil {
		return fmt.Errorf("update remote entry %s: %w", id, err)
	}
	return nil
}

// DeleteEntry succeeds when the entry is already gone.
func (s *Store) DeleteEntry(ctx context.Context, id models.ID) error {
	err := s.client.DeleteEntry(ctx, id.Canonical())
	if errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete remote entry %s: %w", id, err)
	}
	return nil
}

// GetEntry fails with common.ErrorNotFound when the entry does not exist.
func (s *Store) GetEntry(ctx context.Context, id models.ID) (models.Entry, error) {
	e, err := s.client.GetEntry(ctx, id.Canonical())
	if err != nil {
		return models.Entry{}, fmt.Errorf("get remote entry %s: %w", id, err)
	}
	return e.Model(), nil
}

// ListEntriesForUser returns the user's entries newest first, at most limit
// of them when limit > 0. When the server lacks the ordering index the
// entries are fetched unordered and sorted here.
func (s *Store) ListEntriesForUser(ctx context.Context, userID string, limit int) []models.Entry {
	wire, err := s.client.ListEntries(ctx, rpc.ListEntriesRequest{UserID: userID, Ordered: true, Limit: limit})
	if err == nil {
		return toModels(wire)
	}
	if !errors.Is(err, common.ErrIndexMissing) {
		s.log.Warn(ctx, "listing entries failed, returning none", "user", userID, "error", err)
		return []models.Entry{}
	}

	s.log.Warn(ctx, "ordering index missing, sorting in memory", "user", userID)
	wire, err = s.client.ListEntries(ctx, rpc.ListEntriesRequest{UserID: userID})
	if err != nil {
		s.log.Warn(ctx, "unordered listing failed, returning none", "user", userID, "error", err)
		return []models.Entry{}
	}
	entries := toModels(wire)
	models.SortByStartDesc(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// ListEntriesInRange returns entries starting within [from, to], newest
// first. Any failure, a missing index included, yields no entries.
func (s *Store) ListEntriesInRange(ctx context.Context, userID string, from, to time.Time) []models.Entry {
	wire, err := s.client.ListEntriesInRange(ctx, userID, from, to)
	if err != nil {
		s.log.Warn(ctx, "range listing failed, returning none", "user", userID, "error", err)
		return []models.Entry{}
	}
	return toModels(wire)
}

// GetPreferences returns an empty mapping when the document is missing or
// the read fails.
func (s *Store) GetPreferences(ctx context.Context, userID string) models.Preferences {
	prefs, err := s.client.GetPreferences(ctx, userID)
	if err != nil {
		s.log.Warn(ctx, "reading preferences failed, returning none", "user", userID, "error", err)
		return models.Preferences{}
	}
	return models.Preferences(prefs).Normalize()
}

// SetPreferences replaces the user's preferences, creating the document
// when needed.
func (s *Store) SetPreferences(ctx context.Context, userID string, prefs models.Preferences) error {
	if err := s.client.SetPreferences(ctx, userID, prefs.Normalize()); err != nil {
		return fmt.Errorf("set remote preferences: %w", err)
	}
	return nil
}

func toModels(wire []rpc.Entry) []models.Entry {
	out := make([]models.Entry, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.Model())
	}
	return out
}

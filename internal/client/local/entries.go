package local

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/migrainelog/internal/client/repositories/slots"
	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/models"
)

func loadEntries(ctx context.Context, repo slots.Repository) ([]models.Entry, error) {
	var entries []models.Entry
	if _, err := readJSON(ctx, repo, SlotEntries, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return entries, nil
}

// ListEntries returns every entry in storage order.
func (s *Store) ListEntries(ctx context.Context) ([]models.Entry, error) {
	entries, err := loadEntries(ctx, s.repo())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// GetEntry looks an entry up by canonical id.
func (s *Store) GetEntry(ctx context.Context, id models.ID) (models.Entry, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return models.Entry{}, err
	}
	for _, e := range entries {
		if e.ID.Equal(id) {
			return e, nil
		}
	}
	return models.Entry{}, fmt.Errorf("entry %s: %w", id, common.ErrorNotFound)
}

// SaveEntry replaces the entry with the same id, or appends e under a new id
// when there is none. UpdatedAt is always refreshed; CreatedAt is kept when
// already set. A full database yields common.ErrQuotaExceeded.
func (s *Store) SaveEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return models.Entry{}, err
	}
	e.Duration = models.DurationMinutes(e.StartDateTime, e.EndDateTime)
	e.UserID = ""

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var saved models.Entry

	err := s.inTx(ctx, func(ctx context.Context, repo slots.Repository) error {
		entries, err := loadEntries(ctx, repo)
		if err != nil {
			return err
		}

		idx := -1
		if !e.ID.IsZero() {
			for i := range entries {
				if entries[i].ID.Equal(e.ID) {
					idx = i
					break
				}
			}
		}

		e.UpdatedAt = now
		if idx >= 0 {
			e.ID = entries[idx].ID
			if e.CreatedAt.IsZero() {
				e.CreatedAt = entries[idx].CreatedAt
			}
		} else {
			e.ID = models.NewID()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}

		if idx >= 0 {
			entries[idx] = e
		} else {
			entries = append(entries, e)
		}

		saved = e
		return writeJSON(ctx, repo, SlotEntries, entries)
	})
	if err != nil {
		return models.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	s.log.Debug(ctx, "entry saved", "id", saved.ID)
	return saved, nil
}

// DeleteEntry removes the entry if present. Deleting an unknown id is not an
// error.
func (s *Store) DeleteEntry(ctx context.Context, id models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.inTx(ctx, func(ctx context.Context, repo slots.Repository) error {
		entries, err := loadEntries(ctx, repo)
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, e := range entries {
			if !e.ID.Equal(id) {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(entries) {
			return nil
		}
		return writeJSON(ctx, repo, SlotEntries, kept)
	})
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return nil
}

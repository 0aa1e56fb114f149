package local

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/migrainelog/internal/client/repositories/slots"
	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/cryptox"
	"github.com/dmitrijs2005/migrainelog/internal/models"
)

// ExportSnapshot serializes every entry, the preferences and the PIN
// credential into a version-tagged bundle.
func (s *Store) ExportSnapshot(ctx context.Context) ([]byte, error) {
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := s.GetPreferences(ctx)
	if err != nil {
		return nil, err
	}
	cred, err := s.repo().Get(ctx, SlotCredential)
	if err != nil {
		return nil, fmt.Errorf("export credential: %w", err)
	}

	b := models.NewBundle(entries, prefs, s.now())
	if cred != nil && credentialJSON(cred) {
		b.Credential = cred
	}
	return b.Marshal()
}

// ImportSnapshot replaces entries and preferences with the bundle's content
// and returns the number of imported entries. A bundle without a version tag
// is rejected before anything is written; any later failure rolls the store
// back to its pre-import state.
func (s *Store) ImportSnapshot(ctx context.Context, data []byte) (int, error) {
	b, err := models.ParseBundle(data)
	if err != nil {
		return 0, err
	}

	entries := b.Entries
	if entries == nil {
		entries = []models.Entry{}
	}
	for i := range entries {
		if entries[i].ID.IsZero() {
			entries[i].ID = models.NewID()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.inTx(ctx, func(ctx context.Context, repo slots.Repository) error {
		if err := writeJSON(ctx, repo, SlotEntries, entries); err != nil {
			return err
		}
		if err := writeJSON(ctx, repo, SlotPreferences, b.Preferences); err != nil {
			return err
		}
		switch {
		case len(b.Credential) > 0:
			if !credentialJSON(b.Credential) {
				return fmt.Errorf("%w: unreadable credential", common.ErrInvalidBundle)
			}
			return repo.Set(ctx, SlotCredential, b.Credential)
		case b.LegacyPINHash != "":
			return writeJSON(ctx, repo, SlotCredential, cryptox.PINHash{Algo: cryptox.AlgoChecksum, Hash: b.LegacyPINHash})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import snapshot: %w", err)
	}

	s.log.Info(ctx, "snapshot imported", "entries", len(entries))
	return len(entries), nil
}

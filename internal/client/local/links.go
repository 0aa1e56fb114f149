package local

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/migrainelog/internal/client/repositories/slots"
	"github.com/dmitrijs2005/migrainelog/internal/models"
)

// migrationLinks is keyed by remote user, then by local entry id.
type migrationLinks map[string]map[models.ID]models.ID

func loadLinks(ctx context.Context, repo slots.Repository) (migrationLinks, error) {
	links := migrationLinks{}
	if _, err := readJSON(ctx, repo, SlotMigrationLinks, &links); err != nil {
		return nil, fmt.Errorf("read migration links: %w", err)
	}
	if links == nil {
		links = migrationLinks{}
	}
	return links, nil
}

// MigrationLinks maps a local entry id to the id userID's remote store
// assigned to its copy. Links made for other users are not returned.
func (s *Store) MigrationLinks(ctx context.Context, userID string) (map[models.ID]models.ID, error) {
	links, err := loadLinks(ctx, s.repo())
	if err != nil {
		return nil, err
	}
	out := links[userID]
	if out == nil {
		out = map[models.ID]models.ID{}
	}
	return out, nil
}

// LinkMigrated records that localID now exists in userID's remote store as
// remoteID.
func (s *Store) LinkMigrated(ctx context.Context, userID string, localID, remoteID models.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	links, err := loadLinks(ctx, s.repo())
	if err != nil {
		return err
	}
	if links[userID] == nil {
		links[userID] = map[models.ID]models.ID{}
	}
	links[userID][localID.Canonical()] = remoteID
	if err := writeJSON(ctx, s.repo(), SlotMigrationLinks, links); err != nil {
		return fmt.Errorf("write migration links: %w", err)
	}
	return nil
}

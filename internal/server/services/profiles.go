package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/logging"
	"github.com/dmitrijs2005/migrainelog/internal/server/models"
	"github.com/dmitrijs2005/migrainelog/internal/server/repositories/repomanager"
)

type ProfileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewProfileService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *ProfileService {
	return &ProfileService{db: db, repomanager: m, logger: l.With("module", "profile_service")}
}

// InitUser creates the user's profile with empty preferences when missing.
func (s *ProfileService) InitUser(ctx context.Context, userID, displayName, email string) (bool, error) {
	created, err := s.repomanager.Profiles(s.db).Init(ctx, &models.Profile{
		UserID:      userID,
		DisplayName: displayName,
		Email:       email,
	})
	if err != nil {
		return false, fmt.Errorf("error creating profile: %w", err)
	}
	if created {
		s.logger.Info(ctx, "profile created", "user_id", userID)
	}
	return created, nil
}

// GetPreferences treats a missing profile as empty preferences.
func (s *ProfileService) GetPreferences(ctx context.Context, userID string) (map[string]any, error) {
	prefs, err := s.repomanager.Profiles(s.db).GetPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("error reading preferences: %w", err)
	}
	return prefs, nil
}

func (s *ProfileService) SetPreferences(ctx context.Context, userID string, prefs map[string]any) error {
	if err := s.repomanager.Profiles(s.db).SetPreferences(ctx, userID, prefs); err != nil {
		return fmt.Errorf("error saving preferences: %w", err)
	}
	return nil
}

package local

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode"

	"github.com/dmitrijs2005/migrainelog/internal/client/repositories/slots"
	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/cryptox"
)

const MinPINLength = 4

// storedCredential accepts both the current hash record and the {"pin": ...}
// checksum record older journals wrote.
type storedCredential struct {
	cryptox.PINHash
	LegacyPIN string `json:"pin,omitempty"`
}

func (c storedCredential) hash() (cryptox.PINHash, bool) {
	if c.Hash != "" {
		return c.PINHash, true
	}
	if c.LegacyPIN != "" {
		return cryptox.PINHash{Algo: cryptox.AlgoChecksum, Hash: c.LegacyPIN}, true
	}
	return cryptox.PINHash{}, false
}

func validatePIN(pin string) error {
	if len(pin) < MinPINLength {
		return fmt.Errorf("%w: PIN must be at least %d digits", common.ErrorValidation, MinPINLength)
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return fmt.Errorf("%w: PIN must contain digits only", common.ErrorValidation)
		}
	}
	return nil
}

func loadCredential(ctx context.Context, repo slots.Repository) (cryptox.PINHash, bool, error) {
	var c storedCredential
	found, err := readJSON(ctx, repo, SlotCredential, &c)
	if err != nil || !found {
		return cryptox.PINHash{}, false, err
	}
	h, ok := c.hash()
	return h, ok, nil
}

// SetPIN stores a salted argon2id hash of pin.
func (s *Store) SetPIN(ctx context.Context, pin string) error {
	if err := validatePIN(pin); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeJSON(ctx, s.repo(), SlotCredential, cryptox.HashPIN(pin)); err != nil {
		return fmt.Errorf("set pin: %w", err)
	}
	return nil
}

// VerifyPIN checks pin against the stored credential. A credential imported
// from an older journal is upgraded to argon2id after a successful check.
func (s *Store) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok, err := loadCredential(ctx, s.repo())
	if err != nil {
		return false, fmt.Errorf("verify pin: %w", err)
	}
	if !ok {
		return false, nil
	}

	match, err := cryptox.VerifyPIN(h, pin)
	if err != nil || !match {
		return false, err
	}

	if h.Algo != cryptox.AlgoArgon2ID {
		if err := writeJSON(ctx, s.repo(), SlotCredential, cryptox.HashPIN(pin)); err != nil {
			s.log.Warn(ctx, "could not upgrade legacy PIN hash", "error", err)
		} else {
			s.log.Info(ctx, "legacy PIN hash upgraded")
		}
	}
	return true, nil
}

func (s *Store) HasPIN(ctx context.Context) (bool, error) {
	_, ok, err := loadCredential(ctx, s.repo())
	if err != nil {
		return false, fmt.Errorf("has pin: %w", err)
	}
	return ok, nil
}

func credentialJSON(raw json.RawMessage) bool {
	var c storedCredential
	if err := json.Unmarshal(raw, &c); err != nil {
		return false
	}
	_, ok := c.hash()
	return ok
}

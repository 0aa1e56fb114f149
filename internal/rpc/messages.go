package rpc

import (
	"github.com/dmitrijs2005/migrainelog/internal/models"
)

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type GetSaltRequest struct {
	Username string `json:"username"`
}

type GetSaltResponse struct {
	Salt []byte `json:"salt"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Verifier []byte `json:"verifier"`
}

type TokenResponse struct {
	UserID       string `json:"userId"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type InitUserRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

type InitUserResponse struct {
	Created bool `json:"created"`
}

// Entry is a stored record as the server returns it.
type Entry struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	StartDateTime Timestamp       `json:"startDateTime"`
	EndDateTime   *Timestamp      `json:"endDateTime,omitempty"`
	Duration      *int            `json:"duration"`
	Intensity     int             `json:"intensity"`
	Location      string          `json:"location"`
	Symptoms      []string        `json:"symptoms"`
	Triggers      []string        `json:"triggers"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     ServerTimestamp `json:"createdAt"`
	UpdatedAt     ServerTimestamp `json:"updatedAt"`
}

func EntryFromModel(e models.Entry) Entry {
	out := Entry{
		ID:            e.ID.String(),
		UserID:        e.UserID,
		StartDateTime: NewTimestamp(e.StartDateTime),
		Duration:      e.Duration,
		Intensity:     e.Intensity,
		Location:      string(e.Location),
		Symptoms:      e.Symptoms,
		Triggers:      e.Triggers,
		Notes:         e.Notes,
		CreatedAt:     ServerTimestamp{Time: e.CreatedAt},
		UpdatedAt:     ServerTimestamp{Time: e.UpdatedAt},
	}
	if e.EndDateTime != nil {
		end := NewTimestamp(*e.EndDateTime)
		out.EndDateTime = &end
	}
	return out
}

func (e Entry) Model() models.Entry {
	out := models.Entry{
		ID:     models.ID(e.ID).Canonical(),
		UserID: e.UserID,
		EntryInput: models.EntryInput{
			StartDateTime: e.StartDateTime.Time,
			Intensity:     e.Intensity,
			Location:      models.Location(e.Location),
			Symptoms:      e.Symptoms,
			Triggers:      e.Triggers,
			Notes:         e.Notes,
		},
		Duration:  e.Duration,
		CreatedAt: e.CreatedAt.Time,
		UpdatedAt: e.UpdatedAt.Time,
	}
	if e.EndDateTime != nil && !e.EndDateTime.IsZero() {
		end := e.EndDateTime.Time
		out.EndDateTime = &end
	}
	if out.Symptoms == nil {
		out.Symptoms = []string{}
	}
	if out.Triggers == nil {
		out.Triggers = []string{}
	}
	return out
}

type AddEntryRequest struct {
	UserID string            `json:"userId"`
	Entry  models.EntryInput `json:"entry"`
}

type AddEntryResponse struct {
	ID string `json:"id"`
}

type UpdateEntryRequest struct {
	ID    string            `json:"id"`
	Patch models.EntryPatch `json:"patch"`
}

type EntryIDRequest struct {
	ID string `json:"id"`
}

type EntryResponse struct {
	Entry Entry `json:"entry"`
}

// ListEntriesRequest asks for a user's entries. With Ordered set the server
// sorts by start time descending, which needs the composite index.
type ListEntriesRequest struct {
	UserID  string `json:"userId"`
	Ordered bool   `json:"ordered"`
	Limit   int    `json:"limit,omitempty"`
}

type ListEntriesInRangeRequest struct {
	UserID string    `json:"userId"`
	From   Timestamp `json:"from"`
	To     Timestamp `json:"to"`
}

type ListEntriesResponse struct {
	Entries []Entry `json:"entries"`
}

type PreferencesRequest struct {
	UserID string `json:"userId"`
}

type PreferencesResponse struct {
	Preferences map[string]any `json:"preferences"`
}

type SetPreferencesRequest struct {
	UserID      string         `json:"userId"`
	Preferences map[string]any `json:"preferences"`
}

type PresignBackupRequest struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Upload bool   `json:"upload"`
}

type PresignBackupResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

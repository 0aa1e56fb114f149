package models

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
)

const (
	MinIntensity = 1
	MaxIntensity = 10
)

// EntryInput holds the caller-editable fields of an episode.
type EntryInput struct {
	StartDateTime time.Time  `json:"startDateTime"`
	EndDateTime   *time.Time `json:"endDateTime,omitempty"`
	Intensity     int        `json:"intensity"`
	Location      Location   `json:"location"`
	Symptoms      []string   `json:"symptoms"`
	Triggers      []string   `json:"triggers"`
	Notes         string     `json:"notes,omitempty"`
}

// Entry is a stored episode. UserID is only set on records owned by the
// remote backend.
type Entry struct {
	ID ID `json:"id"`
	EntryInput
	Duration  *int      `json:"duration"`
	UserID    string    `json:"userId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntryPatch is a partial update. Nil fields are left untouched. ClearEnd
// removes the end time.
type EntryPatch struct {
	StartDateTime *time.Time `json:"startDateTime,omitempty"`
	EndDateTime   *time.Time `json:"endDateTime,omitempty"`
	ClearEnd      bool       `json:"clearEnd,omitempty"`
	Intensity     *int       `json:"intensity,omitempty"`
	Location      *Location  `json:"location,omitempty"`
	Symptoms      *[]string  `json:"symptoms,omitempty"`
	Triggers      *[]string  `json:"triggers,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

// DurationMinutes returns the rounded number of minutes between start and
// end, or nil when there is no end.
func DurationMinutes(start time.Time, end *time.Time) *int {
	if end == nil {
		return nil
	}
	m := int(math.Round(end.Sub(start).Minutes()))
	return &m
}

// Normalize dedupes and sorts symptoms and triggers, defaults the location
// and strips monotonic clock readings.
func (in *EntryInput) Normalize() {
	in.StartDateTime = in.StartDateTime.Round(0)
	if in.EndDateTime != nil {
		end := in.EndDateTime.Round(0)
		in.EndDateTime = &end
	}
	if in.Location == "" {
		in.Location = LocationUnspecified
	}
	in.Symptoms = normalizeSet(in.Symptoms)
	in.Triggers = normalizeSet(in.Triggers)
}

func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Validate reports the first problem found, wrapped in common.ErrorValidation.
func (in EntryInput) Validate() error {
	if in.StartDateTime.IsZero() {
		return fmt.Errorf("%w: start date/time is required", common.ErrorValidation)
	}
	if in.EndDateTime != nil && !in.EndDateTime.After(in.StartDateTime) {
		return fmt.Errorf("%w: end time must be after start time", common.ErrorValidation)
	}
	if in.Intensity < MinIntensity || in.Intensity > MaxIntensity {
		return fmt.Errorf("%w: intensity must be between %d and %d", common.ErrorValidation, MinIntensity, MaxIntensity)
	}
	if in.Location != "" && !in.Location.Valid() {
		return fmt.Errorf("%w: unknown location %q", common.ErrorValidation, in.Location)
	}
	for _, s := range in.Symptoms {
		if !IsSymptom(s) {
			return fmt.Errorf("%w: unknown symptom %q", common.ErrorValidation, s)
		}
	}
	for _, s := range in.Triggers {
		if !IsTrigger(s) {
			return fmt.Errorf("%w: unknown trigger %q", common.ErrorValidation, s)
		}
	}
	return nil
}

// Input returns the editable part of e.
func (e Entry) Input() EntryInput {
	return e.EntryInput
}

// Apply returns in with p's non-nil fields written over it.
func (p EntryPatch) Apply(in EntryInput) EntryInput {
	if p.StartDateTime != nil {
		in.StartDateTime = *p.StartDateTime
	}
	if p.ClearEnd {
		in.EndDateTime = nil
	} else if p.EndDateTime != nil {
		end := *p.EndDateTime
		in.EndDateTime = &end
	}
	if p.Intensity != nil {
		in.Intensity = *p.Intensity
	}
	if p.Location != nil {
		in.Location = *p.Location
	}
	if p.Symptoms != nil {
		in.Symptoms = slices.Clone(*p.Symptoms)
	}
	if p.Triggers != nil {
		in.Triggers = slices.Clone(*p.Triggers)
	}
	if p.Notes != nil {
		in.Notes = *p.Notes
	}
	return in
}

// PatchFromInput builds a patch that overwrites every field with in.
func PatchFromInput(in EntryInput) EntryPatch {
	p := EntryPatch{
		StartDateTime: &in.StartDateTime,
		Intensity:     &in.Intensity,
		Location:      &in.Location,
		Symptoms:      &in.Symptoms,
		Triggers:      &in.Triggers,
		Notes:         &in.Notes,
	}
	if in.EndDateTime == nil {
		p.ClearEnd = true
	} else {
		p.EndDateTime = in.EndDateTime
	}
	return p
}

// SortByStartDesc orders entries newest first. The sort is stable so equal
// start times keep their relative order.
func SortByStartDesc(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StartDateTime.After(entries[j].StartDateTime)
	})
}

// InRange reports whether the entry starts within [from, to], inclusive.
func (e Entry) InRange(from, to time.Time) bool {
	return !e.StartDateTime.Before(from) && !e.StartDateTime.After(to)
}

package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func saveEntry(t *testing.T, a *App, start string, intensity int) models.Entry {
	t.Helper()
	e, err := a.local.SaveEntry(context.Background(), models.Entry{EntryInput: models.EntryInput{
		StartDateTime: at(start),
		Intensity:     intensity,
		Triggers:      []string{"Stress"},
	}})
	require.NoError(t, err)
	return e
}

func setInput(a *App, input string) {
	a.reader = bufio.NewReader(strings.NewReader(input))
}

func TestAdd(t *testing.T) {
	a, out := newTestApp(t, strings.Join([]string{
		"2024-05-01 08:00",
		"2024-05-01 10:30",
		"7",
		"1",
		"nausea, 2",
		"Stress",
		"felt bad",
		"",
	}, "\n")+"\n")
	ctx := context.Background()

	require.NoError(t, a.Add(ctx, nil))
	assert.Contains(t, out.String(), "Saved ")

	entries, err := a.local.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, at("2024-05-01 08:00"), e.StartDateTime)
	require.NotNil(t, e.Duration)
	assert.Equal(t, 150, *e.Duration)
	assert.Equal(t, 7, e.Intensity)
	assert.Equal(t, models.LocationLeftSide, e.Location)
	assert.Equal(t, []string{"Light Sensitivity", "Nausea"}, e.Symptoms)
	assert.Equal(t, []string{"Stress"}, e.Triggers)
	assert.Equal(t, "felt bad", e.Notes)
}

func TestAdd_DefaultsStartToNowAndRejectsBadIntensity(t *testing.T) {
	a, _ := newTestApp(t, "\n\n11\n\n\n\n\n")
	ctx := context.Background()

	require.ErrorIs(t, a.Add(ctx, nil), common.ErrorValidation)

	entries, err := a.local.ListEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAdd_Ongoing(t *testing.T) {
	a, _ := newTestApp(t, "\n\n4\n\n\n\n\n")
	ctx := context.Background()

	require.NoError(t, a.Add(ctx, nil))
	entries, err := a.local.ListEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, testNow, entries[0].StartDateTime)
	assert.Nil(t, entries[0].EndDateTime)
	assert.Nil(t, entries[0].Duration)
	assert.Equal(t, models.LocationUnspecified, entries[0].Location)
}

func TestEdit(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()

	end := at("2024-05-01 09:00")
	saved, err := a.local.SaveEntry(ctx, models.Entry{EntryInput: models.EntryInput{
		StartDateTime: at("2024-05-01 08:00"),
		EndDateTime:   &end,
		Intensity:     5,
		Triggers:      []string{"Stress"},
		Notes:         "first draft",
	}})
	require.NoError(t, err)

	// keep start, end, location and symptoms; clear triggers and notes
	setInput(a, "\n\n9\n\n\n-\n-\n")
	require.NoError(t, a.Edit(ctx, []string{saved.ID.String()}))
	assert.Contains(t, out.String(), "Updated ")

	got, err := a.local.GetEntry(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Intensity)
	require.NotNil(t, got.Duration)
	assert.Equal(t, 60, *got.Duration)
	assert.Empty(t, got.Triggers)
	assert.Empty(t, got.Notes)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt), "creation time is kept")
}

func TestEdit_Errors(t *testing.T) {
	a, _ := newTestApp(t, "")
	ctx := context.Background()

	var usage errUsage
	require.ErrorAs(t, a.Edit(ctx, nil), &usage)
	require.ErrorIs(t, a.Edit(ctx, []string{"missing"}), common.ErrorNotFound)
}

func TestDelete(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()
	e := saveEntry(t, a, "2024-05-01 08:00", 5)

	require.NoError(t, a.Delete(ctx, []string{e.ID.String()}))
	assert.Contains(t, out.String(), "Deleted.")

	_, err := a.local.GetEntry(ctx, e.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestList(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()

	require.NoError(t, a.List(ctx, nil))
	assert.Contains(t, out.String(), "No entries.")

	oldest := saveEntry(t, a, "2024-05-01 08:00", 3)
	middle := saveEntry(t, a, "2024-05-02 08:00", 4)
	newest := saveEntry(t, a, "2024-05-03 08:00", 5)

	out.Reset()
	require.NoError(t, a.List(ctx, []string{"2"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], newest.ID.String()))
	assert.True(t, strings.HasPrefix(lines[1], middle.ID.String()))
	assert.NotContains(t, out.String(), oldest.ID.String())

	var usage errUsage
	require.ErrorAs(t, a.List(ctx, []string{"zero"}), &usage)
}

func TestShow(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()

	end := at("2024-05-01 10:30")
	e, err := a.local.SaveEntry(ctx, models.Entry{EntryInput: models.EntryInput{
		StartDateTime: at("2024-05-01 08:00"),
		EndDateTime:   &end,
		Intensity:     7,
		Location:      models.LocationFront,
		Symptoms:      []string{"Aura"},
		Notes:         "dark room helped",
	}})
	require.NoError(t, err)

	require.NoError(t, a.Show(ctx, []string{e.ID.String()}))
	s := out.String()
	assert.Contains(t, s, "Start:     2024-05-01 08:00")
	assert.Contains(t, s, "Duration:  2h30m")
	assert.Contains(t, s, "Intensity: 7/10")
	assert.Contains(t, s, "Location:  Front")
	assert.Contains(t, s, "Symptoms:  Aura")
	assert.Contains(t, s, "dark room helped")
}

func TestRange(t *testing.T) {
	a, out := newTestApp(t, "")
	ctx := context.Background()

	first := saveEntry(t, a, "2024-05-01 08:00", 3)
	late := saveEntry(t, a, "2024-05-02 23:00", 4)
	after := saveEntry(t, a, "2024-05-03 01:00", 5)

	require.NoError(t, a.Range(ctx, []string{"2024-05-01", "2024-05-02"}))
	s := out.String()
	assert.Contains(t, s, first.ID.String())
	assert.Contains(t, s, late.ID.String(), "a bare end date covers the whole day")
	assert.NotContains(t, s, after.ID.String())

	out.Reset()
	require.NoError(t, a.Range(ctx, []string{"2024-05-01", "09:00", "2024-05-03", "01:00"}))
	s = out.String()
	assert.NotContains(t, s, first.ID.String())
	assert.Contains(t, s, late.ID.String())
	assert.Contains(t, s, after.ID.String())

	require.ErrorIs(t, a.Range(ctx, []string{"yesterday", "today"}), common.ErrorValidation)
}

func TestFormatDuration(t *testing.T) {
	m := func(v int) *int { return &v }
	assert.Equal(t, "ongoing", formatDuration(nil))
	assert.Equal(t, "45m", formatDuration(m(45)))
	assert.Equal(t, "4h15m", formatDuration(m(255)))
	assert.Equal(t, "1h00m", formatDuration(m(60)))
}

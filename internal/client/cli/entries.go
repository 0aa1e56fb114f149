package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/models"
)

var getMultiline = GetMultiline

// clearMark entered at an edit prompt empties the field.
const clearMark = "-"

const displayLayout = "2006-01-02 15:04"

// readEntryInput prompts for every field. With cur set, an empty answer
// keeps the current value.
func (a *App) readEntryInput(cur *models.EntryInput) (models.EntryInput, error) {
	var in models.EntryInput
	if cur != nil {
		in = *cur
	}
	current := func(v string) string {
		if cur == nil {
			return ""
		}
		return " [" + v + "]"
	}

	s, err := getSimpleText(a.reader, "Start (YYYY-MM-DD HH:MM, empty for now)"+current(a.fmtTime(in.StartDateTime)), a.out)
	if err != nil {
		return in, err
	}
	switch {
	case s != "":
		if in.StartDateTime, err = ParseDateTime(s, a.loc); err != nil {
			return in, err
		}
	case cur == nil:
		in.StartDateTime = a.now().Truncate(time.Minute)
	}

	end := "ongoing"
	if in.EndDateTime != nil {
		end = a.fmtTime(*in.EndDateTime)
	}
	s, err = getSimpleText(a.reader, "End (empty if ongoing, - to clear)"+current(end), a.out)
	if err != nil {
		return in, err
	}
	switch s {
	case "":
	case clearMark:
		in.EndDateTime = nil
	default:
		t, err := ParseDateTime(s, a.loc)
		if err != nil {
			return in, err
		}
		in.EndDateTime = &t
	}

	s, err = getSimpleText(a.reader, "Intensity (1-10)"+current(strconv.Itoa(in.Intensity)), a.out)
	if err != nil {
		return in, err
	}
	if s != "" {
		if in.Intensity, err = strconv.Atoi(s); err != nil {
			return in, fmt.Errorf("intensity must be a number: %w", err)
		}
	}

	s, err = getSimpleText(a.reader, "Location: "+numbered(locationNames())+current(string(in.Location)), a.out)
	if err != nil {
		return in, err
	}
	if s != "" {
		in.Location = models.Location(matchChoice(s, locationNames()))
	}

	if in.Symptoms, err = a.readChoices("Symptoms", models.Symptoms, in.Symptoms, cur != nil); err != nil {
		return in, err
	}
	if in.Triggers, err = a.readChoices("Triggers", models.Triggers, in.Triggers, cur != nil); err != nil {
		return in, err
	}

	if cur == nil {
		if in.Notes, err = getMultiline(a.reader, "Notes", a.out); err != nil {
			return in, err
		}
		return in, nil
	}
	s, err = getSimpleText(a.reader, "Notes (- to clear)"+current(in.Notes), a.out)
	if err != nil {
		return in, err
	}
	switch s {
	case "":
	case clearMark:
		in.Notes = ""
	default:
		in.Notes = s
	}
	return in, nil
}

func (a *App) readChoices(label string, vocabulary, cur []string, editing bool) ([]string, error) {
	prompt := label + ", comma separated: " + numbered(vocabulary)
	if editing {
		prompt += " [" + strings.Join(cur, ", ") + "]"
	}
	s, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return nil, err
	}
	switch {
	case s == clearMark:
		return []string{}, nil
	case s == "" && editing:
		return cur, nil
	default:
		return ParseChoices(s, vocabulary), nil
	}
}

func (a *App) Add(ctx context.Context, args []string) error {
	in, err := a.readEntryInput(nil)
	if err != nil {
		return err
	}
	id, err := a.facade.Add(ctx, in)
	if err != nil {
		return err
	}
	a.printf("Saved %s.\n", id)
	return nil
}

func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("edit <id>")
	}
	id := models.ID(args[0])
	e, err := a.facade.GetByID(ctx, id)
	if err != nil {
		return err
	}
	in, err := a.readEntryInput(&e.EntryInput)
	if err != nil {
		return err
	}
	if err := a.facade.Update(ctx, id, in); err != nil {
		return err
	}
	a.printf("Updated %s.\n", id)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("delete <id>")
	}
	if err := a.facade.Delete(ctx, models.ID(args[0])); err != nil {
		return err
	}
	a.printf("Deleted.\n")
	return nil
}

// List prints the newest entries, all of them or the first n.
func (a *App) List(ctx context.Context, args []string) error {
	limit := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return errUsage("list [n]")
		}
		limit = n
	}
	entries, err := a.facade.List(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	a.printEntries(entries)
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("show <id>")
	}
	e, err := a.facade.GetByID(ctx, models.ID(args[0]))
	if err != nil {
		return err
	}

	a.printf("ID:        %s\n", e.ID)
	a.printf("Start:     %s\n", a.fmtTime(e.StartDateTime))
	if e.EndDateTime != nil {
		a.printf("End:       %s\n", a.fmtTime(*e.EndDateTime))
	}
	a.printf("Duration:  %s\n", formatDuration(e.Duration))
	a.printf("Intensity: %d/10\n", e.Intensity)
	a.printf("Location:  %s\n", e.Location)
	a.printf("Symptoms:  %s\n", strings.Join(e.Symptoms, ", "))
	a.printf("Triggers:  %s\n", strings.Join(e.Triggers, ", "))
	if e.Notes != "" {
		a.printf("Notes:\n%s\n", e.Notes)
	}
	a.printf("Updated:   %s\n", a.fmtTime(e.UpdatedAt))
	return nil
}

// Range prints entries starting between two dates. A bare end date
// includes the whole day.
func (a *App) Range(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage("range <from> <to>")
	}
	// "2024-01-01 10:00" arrives as two fields.
	fromArg, toArg := args[0], args[1]
	if len(args) == 4 {
		fromArg, toArg = args[0]+" "+args[1], args[2]+" "+args[3]
	}

	from, err := ParseDateTime(fromArg, a.loc)
	if err != nil {
		return err
	}
	to, err := ParseDateTime(toArg, a.loc)
	if err != nil {
		return err
	}
	if len(toArg) == len(time.DateOnly) {
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	entries, err := a.facade.ListInRange(ctx, from, to)
	if err != nil {
		return err
	}
	a.printEntries(entries)
	return nil
}

func (a *App) printEntries(entries []models.Entry) {
	if len(entries) == 0 {
		a.printf("No entries.\n")
		return
	}
	for _, e := range entries {
		a.printf("%s  %s  %2d/10  %-8s  %s\n",
			e.ID, a.fmtTime(e.StartDateTime), e.Intensity, formatDuration(e.Duration), e.Location)
	}
}

func (a *App) fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.In(a.loc).Format(displayLayout)
}

func formatDuration(minutes *int) string {
	if minutes == nil {
		return "ongoing"
	}
	h, m := *minutes/60, *minutes%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", h, m)
}

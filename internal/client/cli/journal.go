package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/migrainelog/internal/client/data"
	"github.com/dmitrijs2005/migrainelog/internal/client/stats"
	"github.com/dmitrijs2005/migrainelog/internal/filex"
	"github.com/dmitrijs2005/migrainelog/internal/models"
)

const defaultStatsDays = 30

// Stats summarises the last n days of the active journal.
func (a *App) Stats(ctx context.Context, args []string) error {
	days := defaultStatsDays
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return errUsage("stats [days]")
		}
		days = n
	}

	entries, err := a.facade.List(ctx)
	if err != nil {
		return err
	}
	s := stats.Compute(entries, a.now(), days, a.loc)
	if s.Total == 0 {
		a.printf("No entries in the last %d days.\n", days)
		return nil
	}

	a.printf("Last %d days: %d episodes (%.1f per week)\n", s.WindowDays, s.Total, s.AvgPerWeek)
	a.printf("Intensity:     average %.1f, median %.1f\n", s.AvgIntensity, s.MedianIntensity)
	if s.AvgDurationMinutes > 0 {
		m := int(s.AvgDurationMinutes + 0.5)
		a.printf("Duration:      average %s\n", formatDuration(&m))
	}
	a.printf("Peak hour:     %02d:00\n", s.PeakHour)
	a.printf("Longest streak %d day(s), last episode %d day(s) ago\n", s.LongestStreak, s.DaysSinceLast)

	printCounts := func(label string, counts []stats.Count) {
		if len(counts) == 0 {
			return
		}
		parts := make([]string, 0, len(counts))
		for _, c := range counts {
			parts = append(parts, fmt.Sprintf("%s %d", c.Name, c.Count))
		}
		a.printf("%-14s %s\n", label+":", strings.Join(parts, ", "))
	}
	printCounts("Triggers", s.Triggers)
	printCounts("Symptoms", s.Symptoms)

	for _, ti := range s.TriggerIntensity {
		a.printf("  %-14s avg intensity %.1f (%d)\n", ti.Name, ti.Average, ti.Count)
	}
	return nil
}

// Prefs prints preferences, or merges key=value pairs into them.
func (a *App) Prefs(ctx context.Context, args []string) error {
	prefs, err := a.facade.GetPreferences(ctx)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if len(prefs) == 0 {
			a.printf("No preferences set.\n")
			return nil
		}
		keys := make([]string, 0, len(prefs))
		for k := range prefs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			a.printf("%s = %v\n", k, prefs[k])
		}
		return nil
	}

	next := make(models.Preferences, len(prefs)+len(args))
	for k, v := range prefs {
		next[k] = v
	}
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return errUsage("prefs [key=value ...]")
		}
		next[k] = parsePrefValue(v)
	}

	if err := a.facade.SetPreferences(ctx, next); err != nil {
		return err
	}
	a.printf("Preferences saved.\n")
	return nil
}

func parsePrefValue(v string) any {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// Export writes the active journal to a bundle file.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("export <file>")
	}
	b, err := a.facade.Export(ctx)
	if err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(args[0], b, 0o600); err != nil {
		return err
	}
	a.printf("Exported to %s.\n", args[0])
	return nil
}

func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage("import <file>")
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	res, err := a.facade.Import(ctx, b)
	if err != nil {
		return err
	}
	a.printImportResult(res)
	return nil
}

func (a *App) printImportResult(res data.ImportResult) {
	a.printf("Imported %d entries", res.EntriesSucceeded)
	if res.EntriesFailed > 0 {
		a.printf(", %d failed", res.EntriesFailed)
	}
	if !res.PreferencesSucceeded {
		a.printf(", preferences not saved")
	}
	a.printf(".\n")
}

// Storage reports how much of the local quota is in use.
func (a *App) Storage(ctx context.Context, args []string) error {
	u, err := a.local.StorageUsage(ctx)
	if err != nil {
		return err
	}
	a.printf("%d entries, %.1f KiB of %.1f KiB used (%.1f%%)\n",
		u.EntryCount, float64(u.BytesUsed)/1024, float64(u.BytesCapacity)/1024, u.PercentUsed)
	if u.NearLimit {
		a.printf("Warning: local storage is almost full. Export or migrate old entries.\n")
	}
	return nil
}

// Clear erases the local journal after confirmation.
func (a *App) Clear(ctx context.Context, args []string) error {
	if !Confirm(a.reader, "Erase every entry and preference stored on this device?", a.out) {
		a.printf("Cancelled.\n")
		return nil
	}
	if err := a.local.ClearAll(ctx); err != nil {
		return err
	}
	a.printf("Local journal cleared.\n")
	return nil
}

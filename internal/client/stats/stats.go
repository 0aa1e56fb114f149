// Package stats computes journal summaries over a trailing window of days.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/models"
	"gonum.org/v1/gonum/stat"
)

const day = 24 * time.Hour

type Count struct {
	Name  string
	Count int
}

type TriggerIntensity struct {
	Name    string
	Average float64
	Count   int
}

// Day aggregates the entries that started on one calendar day.
type Day struct {
	Date         string
	Count        int
	AvgIntensity float64
	MaxIntensity int
}

type Summary struct {
	WindowDays int
	Total      int

	AvgIntensity       float64
	MedianIntensity    float64
	AvgDurationMinutes float64
	AvgPerWeek         float64

	// PeakHour is the start hour seen most often, -1 without entries.
	PeakHour        int
	HourlyIntensity [24]float64

	LongestStreak int
	// DaysSinceLast is -1 without entries.
	DaysSinceLast int

	Triggers         []Count
	Symptoms         []Count
	TriggerIntensity []TriggerIntensity
	Days             []Day
}

// Window returns the entries that started within the last days days
// before now.
func Window(entries []models.Entry, now time.Time, days int) []models.Entry {
	since := now.Add(-time.Duration(days) * day)
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.StartDateTime.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

// Compute summarises the entries of the last days days. Calendar days and
// hours are taken in loc.
func Compute(all []models.Entry, now time.Time, days int, loc *time.Location) Summary {
	entries := Window(all, now, days)
	s := Summary{WindowDays: days, Total: len(entries), PeakHour: -1, DaysSinceLast: -1}
	if len(entries) == 0 {
		return s
	}

	intensities := make([]float64, 0, len(entries))
	var (
		durations          []float64
		hourly             [24][]float64
		latest             time.Time
		triggers, symptoms = map[string]int{}, map[string]int{}
		triggerIntensities = map[string][]float64{}
		byDay              = map[string]*Day{}
		dayIntensities     = map[string][]float64{}
	)

	for _, e := range entries {
		v := float64(e.Intensity)
		intensities = append(intensities, v)
		if e.Duration != nil {
			durations = append(durations, float64(*e.Duration))
		}

		start := e.StartDateTime.In(loc)
		hourly[start.Hour()] = append(hourly[start.Hour()], v)
		if e.StartDateTime.After(latest) {
			latest = e.StartDateTime
		}

		for _, t := range e.Triggers {
			triggers[t]++
			triggerIntensities[t] = append(triggerIntensities[t], v)
		}
		for _, sym := range e.Symptoms {
			symptoms[sym]++
		}

		date := start.Format(time.DateOnly)
		d, ok := byDay[date]
		if !ok {
			d = &Day{Date: date}
			byDay[date] = d
		}
		d.Count++
		d.MaxIntensity = max(d.MaxIntensity, e.Intensity)
		dayIntensities[date] = append(dayIntensities[date], v)
	}

	s.AvgIntensity = round1(stat.Mean(intensities, nil))
	s.MedianIntensity = median(intensities)
	if len(durations) > 0 {
		s.AvgDurationMinutes = round1(stat.Mean(durations, nil))
	}
	if days > 0 {
		s.AvgPerWeek = round1(float64(len(entries)) / (float64(days) / 7))
	}

	for h := range hourly {
		if len(hourly[h]) > 0 {
			s.HourlyIntensity[h] = stat.Mean(hourly[h], nil)
		}
		if s.PeakHour < 0 || len(hourly[h]) > len(hourly[s.PeakHour]) {
			s.PeakHour = h
		}
	}

	dates := make([]string, 0, len(byDay))
	for date, d := range byDay {
		d.AvgIntensity = stat.Mean(dayIntensities[date], nil)
		dates = append(dates, date)
	}
	sort.Strings(dates)
	for _, date := range dates {
		s.Days = append(s.Days, *byDay[date])
	}
	s.LongestStreak = longestStreak(dates, loc)
	s.DaysSinceLast = int(now.Sub(latest) / day)

	s.Triggers = counts(triggers)
	s.Symptoms = counts(symptoms)
	for _, c := range s.Triggers {
		s.TriggerIntensity = append(s.TriggerIntensity, TriggerIntensity{
			Name:    c.Name,
			Average: round1(stat.Mean(triggerIntensities[c.Name], nil)),
			Count:   c.Count,
		})
	}
	sort.SliceStable(s.TriggerIntensity, func(i, j int) bool {
		return s.TriggerIntensity[i].Average > s.TriggerIntensity[j].Average
	})

	return s
}

// median averages the two middle values of an even-sized sample. The
// quantile positions sit halfway between samples so the empirical lookup
// never lands on a boundary.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := float64(len(sorted))
	k := float64(len(sorted) / 2)
	upper := stat.Quantile((k+0.5)/n, stat.Empirical, sorted, nil)
	if len(sorted)%2 == 1 {
		return upper
	}
	lower := stat.Quantile((k-0.5)/n, stat.Empirical, sorted, nil)
	return (lower + upper) / 2
}

// longestStreak counts the longest run of consecutive calendar days in the
// sorted, distinct dates.
func longestStreak(dates []string, loc *time.Location) int {
	best, run := 1, 1
	var prev time.Time
	for i, date := range dates {
		t, _ := time.ParseInLocation(time.DateOnly, date, loc)
		if i > 0 && prev.AddDate(0, 0, 1).Equal(t) {
			run++
			best = max(best, run)
		} else if i > 0 {
			run = 1
		}
		prev = t
	}
	return best
}

// counts orders by frequency, then name.
func counts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for name, n := range m {
		out = append(out, Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

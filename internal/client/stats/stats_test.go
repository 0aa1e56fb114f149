package stats

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/migrainelog/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(start string, intensity int, duration int, triggers, symptoms []string) models.Entry {
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	e := models.Entry{EntryInput: models.EntryInput{
		StartDateTime: t,
		Intensity:     intensity,
		Triggers:      triggers,
		Symptoms:      symptoms,
	}}
	if duration > 0 {
		e.Duration = &duration
	}
	return e
}

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func sample() []models.Entry {
	return []models.Entry{
		entry("2024-03-20T08:05:00Z", 2, 30, nil, nil),
		entry("2024-03-12T20:00:00Z", 8, 0, []string{"Weather"}, nil),
		entry("2024-03-11T08:40:00Z", 6, 120, []string{"Stress", "Weather"}, []string{"Nausea", "Aura"}),
		entry("2024-03-10T08:15:00Z", 4, 60, []string{"Stress"}, []string{"Nausea"}),
		entry("2024-01-01T10:00:00Z", 10, 600, []string{"Food"}, nil),
	}
}

func TestCompute(t *testing.T) {
	s := Compute(sample(), now, 30, time.UTC)

	assert.Equal(t, 30, s.WindowDays)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 5.0, s.AvgIntensity)
	assert.Equal(t, 5.0, s.MedianIntensity)
	assert.Equal(t, 70.0, s.AvgDurationMinutes)
	assert.Equal(t, 0.9, s.AvgPerWeek)
	assert.Equal(t, 8, s.PeakHour)
	assert.Equal(t, 4.0, s.HourlyIntensity[8])
	assert.Equal(t, 8.0, s.HourlyIntensity[20])
	assert.Equal(t, 3, s.LongestStreak)
	assert.Equal(t, 11, s.DaysSinceLast)

	assert.Empty(t, cmp.Diff([]Count{{"Stress", 2}, {"Weather", 2}}, s.Triggers))
	assert.Empty(t, cmp.Diff([]Count{{"Nausea", 2}, {"Aura", 1}}, s.Symptoms))
	assert.Empty(t, cmp.Diff([]TriggerIntensity{{"Weather", 7, 2}, {"Stress", 5, 2}}, s.TriggerIntensity))

	require.Len(t, s.Days, 4)
	assert.Equal(t, Day{Date: "2024-03-10", Count: 1, AvgIntensity: 4, MaxIntensity: 4}, s.Days[0])
	assert.Equal(t, "2024-03-20", s.Days[3].Date)
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(sample(), now, 7, time.UTC)

	assert.Equal(t, 0, s.Total)
	assert.Equal(t, -1, s.PeakHour)
	assert.Equal(t, -1, s.DaysSinceLast)
	assert.Zero(t, s.LongestStreak)
	assert.Empty(t, s.Triggers)
}

func TestCompute_OddMedianAndSingleDay(t *testing.T) {
	entries := []models.Entry{
		entry("2024-03-30T01:00:00Z", 3, 0, nil, nil),
		entry("2024-03-30T02:00:00Z", 9, 0, nil, nil),
		entry("2024-03-30T03:00:00Z", 5, 0, nil, nil),
	}
	s := Compute(entries, now, 7, time.UTC)

	assert.Equal(t, 5.0, s.MedianIntensity)
	assert.Equal(t, 1, s.LongestStreak)
	assert.Zero(t, s.AvgDurationMinutes)
	assert.Equal(t, 1, s.PeakHour)
	require.Len(t, s.Days, 1)
	assert.Equal(t, Day{Date: "2024-03-30", Count: 3, AvgIntensity: 17.0 / 3, MaxIntensity: 9}, s.Days[0])
}

func TestCompute_DaysFollowLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	entries := []models.Entry{
		entry("2024-03-28T05:00:00Z", 4, 0, nil, nil),
		entry("2024-03-26T20:00:00Z", 4, 0, nil, nil),
	}

	assert.Equal(t, 1, Compute(entries, now, 7, time.UTC).LongestStreak)
	s := Compute(entries, now, 7, tokyo)
	assert.Equal(t, 2, s.LongestStreak)
	assert.Equal(t, 5, s.PeakHour)
}

func TestWindow(t *testing.T) {
	edge := entry("2024-03-24T12:00:00Z", 1, 0, nil, nil)
	before := entry("2024-03-24T11:59:59Z", 1, 0, nil, nil)

	got := Window([]models.Entry{edge, before}, now, 7)
	require.Len(t, got, 1)
	assert.Equal(t, edge.StartDateTime, got[0].StartDateTime)
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"single", []float64{7}, 7},
		{"odd unsorted", []float64{9, 1, 4}, 4},
		{"even averages middles", []float64{9, 1, 2, 4}, 3},
		{"even pair", []float64{3, 6}, 4.5},
		{"ties", []float64{5, 5, 5, 5, 5, 5}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]float64(nil), tt.values...)
			assert.Equal(t, tt.want, median(tt.values))
			assert.Equal(t, in, tt.values, "input must not be reordered")
		})
	}
}

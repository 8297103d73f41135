package dashboard

import (
	"fmt"
	"slices"
	"time"

	"github.com/perimetrix/fieldclinic/appointments"
	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/preferences"
	"github.com/perimetrix/fieldclinic/results"
	"github.com/perimetrix/fieldclinic/state"
)

type Bucket struct {
	Period       string                   `json:"period"`
	Start        string                   `json:"start"`
	Count        int                      `json:"count"`
	AverageScore float64                  `json:"averageScore"`
	AverageMD    float64                  `json:"averageMd"`
	TestTypes    map[results.TestType]int `json:"testTypes"`

	scoreSum float64
	mdSum    float64
}

type Totals struct {
	Patients             int `json:"patients"`
	ActivePatients       int `json:"activePatients"`
	TestResults          int `json:"testResults"`
	UpcomingAppointments int `json:"upcomingAppointments"`
}

type Summary struct {
	Frequency preferences.Frequency `json:"frequency"`
	Buckets   []Bucket              `json:"buckets"`
	Totals    Totals                `json:"totals"`
}

// Summarize groups the completed results of a workspace into periods of the selected
// frequency, oldest first. Results with an unreadable date are left out of the buckets.
func Summarize(snapshot state.State, frequency preferences.Frequency, now time.Time) Summary {
	summary := Summary{
		Frequency: frequency,
		Buckets:   make([]Bucket, 0),
		Totals:    totals(snapshot, now),
	}

	buckets := make(map[string]*Bucket)
	for _, r := range snapshot.TestResults {
		if r.Status != "" && r.Status != results.StatusCompleted {
			continue
		}
		date, err := time.Parse(time.DateOnly, r.Date)
		if err != nil {
			continue
		}
		period, start := Period(frequency, date)
		b, ok := buckets[period]
		if !ok {
			b = &Bucket{Period: period, Start: start.Format(time.DateOnly), TestTypes: make(map[results.TestType]int)}
			buckets[period] = b
		}
		b.Count++
		b.scoreSum += float64(r.Reliability.Score)
		b.mdSum += r.Indices.MD
		b.TestTypes[r.TestType]++
	}

	for _, b := range buckets {
		b.AverageScore = results.RoundTo(b.scoreSum/float64(b.Count), 1)
		b.AverageMD = results.RoundTo(b.mdSum/float64(b.Count), 2)
		summary.Buckets = append(summary.Buckets, *b)
	}
	slices.SortFunc(summary.Buckets, func(a, b Bucket) int {
		if a.Start < b.Start {
			return -1
		} else if a.Start > b.Start {
			return 1
		}
		return 0
	})
	return summary
}

// Period returns the label and first day of the period containing date.
func Period(frequency preferences.Frequency, date time.Time) (string, time.Time) {
	year, month, day := date.Date()
	switch frequency {
	case preferences.FrequencyDaily:
		return date.Format(time.DateOnly), time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	case preferences.FrequencyMonthly:
		return fmt.Sprintf("%04d-%02d", year, month), time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	case preferences.FrequencyYearly:
		return fmt.Sprintf("%04d", year), time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		isoYear, isoWeek := date.ISOWeek()
		offset := (int(date.Weekday()) + 6) % 7
		monday := time.Date(year, month, day-offset, 0, 0, 0, 0, time.UTC)
		return fmt.Sprintf("%04d-W%02d", isoYear, isoWeek), monday
	}
}

func totals(snapshot state.State, now time.Time) Totals {
	t := Totals{
		Patients:    len(snapshot.Patients),
		TestResults: len(snapshot.TestResults),
	}
	for _, p := range snapshot.Patients {
		if p.Status == patients.StatusActive {
			t.ActivePatients++
		}
	}
	today := now.Format(time.DateOnly)
	for _, a := range snapshot.Appointments {
		if a.Status == appointments.StatusScheduled && a.Date >= today {
			t.UpcomingAppointments++
		}
	}
	return t
}

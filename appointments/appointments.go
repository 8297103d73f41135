package appointments

import (
	"cmp"
	"slices"
	"strings"
	"time"

	errs "github.com/perimetrix/fieldclinic/errors"
)

const Table = "appointments"

const timeLayout = "15:04"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Appointment struct {
	Id        string `json:"id,omitempty"`
	PatientId string `json:"patientId"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Type      string `json:"type"`
	Status    Status `json:"status"`
	Notes     string `json:"notes,omitempty"`
}

type Patch struct {
	Date   *string `json:"date,omitempty" bson:"date,omitempty"`
	Time   *string `json:"time,omitempty" bson:"time,omitempty"`
	Type   *string `json:"type,omitempty" bson:"type,omitempty"`
	Status *Status `json:"status,omitempty" bson:"status,omitempty"`
	Notes  *string `json:"notes,omitempty" bson:"notes,omitempty"`
}

func (a Appointment) Validate() error {
	v := &errs.ValidationError{}
	if a.PatientId == "" {
		v.Add("patientId", "is required")
	}
	validateDate(v, a.Date)
	validateTime(v, a.Time)
	if strings.TrimSpace(a.Type) == "" {
		v.Add("type", "is required")
	}
	if a.Status != "" && !a.Status.Valid() {
		v.Add("status", "must be one of scheduled, completed, cancelled, no-show")
	}
	return v.Err()
}

func (p Patch) Validate() error {
	v := &errs.ValidationError{}
	if p.Date != nil {
		validateDate(v, *p.Date)
	}
	if p.Time != nil {
		validateTime(v, *p.Time)
	}
	if p.Type != nil && strings.TrimSpace(*p.Type) == "" {
		v.Add("type", "cannot be blank")
	}
	if p.Status != nil && !p.Status.Valid() {
		v.Add("status", "must be one of scheduled, completed, cancelled, no-show")
	}
	return v.Err()
}

// Compare orders appointments by date, then time.
func Compare(a, b Appointment) int {
	if c := cmp.Compare(a.Date, b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.Time, b.Time)
}

func Sort(list []Appointment) {
	slices.SortStableFunc(list, Compare)
}

// Upcoming returns scheduled appointments on or after the given day.
func Upcoming(list []Appointment, from time.Time) []Appointment {
	day := from.Format(time.DateOnly)
	upcoming := make([]Appointment, 0)
	for _, a := range list {
		if a.Status == StatusScheduled && a.Date >= day {
			upcoming = append(upcoming, a)
		}
	}
	return upcoming
}

func validateDate(v *errs.ValidationError, date string) {
	if date == "" {
		v.Add("date", "is required")
		return
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		v.Add("date", "must be formatted as YYYY-MM-DD")
	}
}

func validateTime(v *errs.ValidationError, t string) {
	if t == "" {
		v.Add("time", "is required")
		return
	}
	if _, err := time.Parse(timeLayout, t); err != nil {
		v.Add("time", "must be formatted as HH:MM")
	}
}

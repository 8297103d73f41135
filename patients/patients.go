package patients

import (
	"net/mail"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	errs "github.com/perimetrix/fieldclinic/errors"
)

const Table = "patients"

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Patient struct {
	Id                string     `json:"id,omitempty"`
	FirstName         string     `json:"firstName"`
	LastName          string     `json:"lastName"`
	DateOfBirth       string     `json:"dateOfBirth"`
	Email             string     `json:"email,omitempty"`
	Phone             string     `json:"phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	MedicalHistory    []string   `json:"medicalHistory"`
	InsuranceProvider string     `json:"insuranceProvider,omitempty"`
	AvatarUrl         string     `json:"avatarUrl,omitempty"`
	Status            Status     `json:"status"`
	TotalTests        int        `json:"totalTests"`
	LastVisit         *string    `json:"lastVisit,omitempty"`
	NextAppointment   *string    `json:"nextAppointment,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	FirstName         *string   `json:"firstName,omitempty" bson:"first_name,omitempty"`
	LastName          *string   `json:"lastName,omitempty" bson:"last_name,omitempty"`
	DateOfBirth       *string   `json:"dateOfBirth,omitempty" bson:"date_of_birth,omitempty"`
	Email             *string   `json:"email,omitempty" bson:"email,omitempty"`
	Phone             *string   `json:"phone,omitempty" bson:"phone,omitempty"`
	Address           *string   `json:"address,omitempty" bson:"address,omitempty"`
	MedicalHistory    *[]string `json:"medicalHistory,omitempty" bson:"medical_history,omitempty"`
	InsuranceProvider *string   `json:"insuranceProvider,omitempty" bson:"insurance_provider,omitempty"`
	AvatarUrl         *string   `json:"avatarUrl,omitempty" bson:"avatar_url,omitempty"`
	Status            *Status   `json:"status,omitempty" bson:"status,omitempty"`
	LastVisit         *string   `json:"lastVisit,omitempty" bson:"last_visit,omitempty"`
	NextAppointment   *string   `json:"nextAppointment,omitempty" bson:"next_appointment,omitempty"`
}

func (p Patch) Empty() bool {
	return p == Patch{}
}

// Validate checks a patient form before submission.
func (p Patient) Validate() error {
	v := &errs.ValidationError{}
	if strings.TrimSpace(p.FirstName) == "" {
		v.Add("firstName", "is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		v.Add("lastName", "is required")
	}
	validateBirthDate(v, p.DateOfBirth)
	validateEmail(v, p.Email)
	if p.Status != "" && !p.Status.Valid() {
		v.Add("status", "must be one of active, inactive")
	}
	validateOptionalDate(v, "lastVisit", p.LastVisit)
	validateOptionalDate(v, "nextAppointment", p.NextAppointment)
	return v.Err()
}

func (p Patch) Validate() error {
	v := &errs.ValidationError{}
	if p.FirstName != nil && strings.TrimSpace(*p.FirstName) == "" {
		v.Add("firstName", "cannot be blank")
	}
	if p.LastName != nil && strings.TrimSpace(*p.LastName) == "" {
		v.Add("lastName", "cannot be blank")
	}
	if p.DateOfBirth != nil {
		validateBirthDate(v, *p.DateOfBirth)
	}
	if p.Email != nil {
		validateEmail(v, *p.Email)
	}
	if p.Status != nil && !p.Status.Valid() {
		v.Add("status", "must be one of active, inactive")
	}
	validateOptionalDate(v, "lastVisit", p.LastVisit)
	validateOptionalDate(v, "nextAppointment", p.NextAppointment)
	return v.Err()
}

// NormalizeMedicalHistory trims entries and drops blanks and duplicates, keeping order.
func NormalizeMedicalHistory(history []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	normalized := make([]string, 0, len(history))
	for _, entry := range history {
		entry = strings.TrimSpace(entry)
		key := strings.ToLower(entry)
		if entry == "" || seen.Contains(key) {
			continue
		}
		seen.Add(key)
		normalized = append(normalized, entry)
	}
	return normalized
}

func validateBirthDate(v *errs.ValidationError, dob string) {
	if dob == "" {
		v.Add("dateOfBirth", "is required")
		return
	}
	parsed, err := time.Parse(time.DateOnly, dob)
	if err != nil {
		v.Add("dateOfBirth", "must be formatted as YYYY-MM-DD")
		return
	}
	if parsed.After(time.Now()) {
		v.Add("dateOfBirth", "cannot be in the future")
	}
}

func validateEmail(v *errs.ValidationError, email string) {
	if email == "" {
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		v.Add("email", "is not a valid email address")
	}
}

func validateOptionalDate(v *errs.ValidationError, field string, date *string) {
	if date == nil || *date == "" {
		return
	}
	if _, err := time.Parse(time.DateOnly, *date); err != nil {
		v.Add(field, "must be formatted as YYYY-MM-DD")
	}
}

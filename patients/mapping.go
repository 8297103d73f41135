package patients

import (
	"time"

	"github.com/fatih/structs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Row is the stored shape of a patient.
type Row struct {
	Id                primitive.ObjectID `bson:"_id,omitempty"`
	OwnerId           string             `bson:"owner_id"`
	FirstName         string             `bson:"first_name"`
	LastName          string             `bson:"last_name"`
	DateOfBirth       string             `bson:"date_of_birth"`
	Email             string             `bson:"email,omitempty"`
	Phone             string             `bson:"phone,omitempty"`
	Address           string             `bson:"address,omitempty"`
	MedicalHistory    []string           `bson:"medical_history"`
	InsuranceProvider string             `bson:"insurance_provider,omitempty"`
	AvatarUrl         string             `bson:"avatar_url,omitempty"`
	Status            Status             `bson:"status"`
	TotalTests        int                `bson:"total_tests"`
	LastVisit         *string            `bson:"last_visit,omitempty"`
	NextAppointment   *string            `bson:"next_appointment,omitempty"`
	CreatedAt         time.Time          `bson:"created_at"`
}

type Mapper struct{}

func (Mapper) ToRow(ownerId string, p Patient) (Row, error) {
	status := p.Status
	if status == "" {
		status = StatusActive
	}
	return Row{
		OwnerId:           ownerId,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		DateOfBirth:       p.DateOfBirth,
		Email:             p.Email,
		Phone:             p.Phone,
		Address:           p.Address,
		MedicalHistory:    NormalizeMedicalHistory(p.MedicalHistory),
		InsuranceProvider: p.InsuranceProvider,
		AvatarUrl:         p.AvatarUrl,
		Status:            status,
		TotalTests:        p.TotalTests,
		LastVisit:         p.LastVisit,
		NextAppointment:   p.NextAppointment,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

func (Mapper) FromRow(r Row) Patient {
	p := Patient{
		FirstName:         r.FirstName,
		LastName:          r.LastName,
		DateOfBirth:       r.DateOfBirth,
		Email:             r.Email,
		Phone:             r.Phone,
		Address:           r.Address,
		MedicalHistory:    r.MedicalHistory,
		InsuranceProvider: r.InsuranceProvider,
		AvatarUrl:         r.AvatarUrl,
		Status:            r.Status,
		TotalTests:        r.TotalTests,
		LastVisit:         r.LastVisit,
		NextAppointment:   r.NextAppointment,
	}
	if !r.Id.IsZero() {
		p.Id = r.Id.Hex()
	}
	if p.MedicalHistory == nil {
		p.MedicalHistory = []string{}
	}
	if !r.CreatedAt.IsZero() {
		createdAt := r.CreatedAt
		p.CreatedAt = &createdAt
	}
	return p
}

// ToUpdate keeps only the fields present in the patch, keyed by column name.
func (Mapper) ToUpdate(patch Patch) (bson.M, error) {
	if patch.MedicalHistory != nil {
		normalized := NormalizeMedicalHistory(*patch.MedicalHistory)
		patch.MedicalHistory = &normalized
	}

	s := structs.New(patch)
	s.TagName = "bson"
	return s.Map(), nil
}

package appointments

import (
	"time"

	"github.com/fatih/structs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/perimetrix/fieldclinic/store"
)

type Row struct {
	Id        primitive.ObjectID `bson:"_id,omitempty"`
	OwnerId   string             `bson:"owner_id"`
	PatientId primitive.ObjectID `bson:"patient_id"`
	Date      string             `bson:"date"`
	Time      string             `bson:"time"`
	Type      string             `bson:"type"`
	Status    Status             `bson:"status"`
	Notes     string             `bson:"notes,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

type Mapper struct{}

func (Mapper) ToRow(ownerId string, a Appointment) (Row, error) {
	patientId, _ := store.ObjectIDFromString(a.PatientId)
	status := a.Status
	if status == "" {
		status = StatusScheduled
	}
	return Row{
		OwnerId:   ownerId,
		PatientId: patientId,
		Date:      a.Date,
		Time:      a.Time,
		Type:      a.Type,
		Status:    status,
		Notes:     a.Notes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (Mapper) FromRow(r Row) Appointment {
	a := Appointment{
		Date:   r.Date,
		Time:   r.Time,
		Type:   r.Type,
		Status: r.Status,
		Notes:  r.Notes,
	}
	if !r.Id.IsZero() {
		a.Id = r.Id.Hex()
	}
	if !r.PatientId.IsZero() {
		a.PatientId = r.PatientId.Hex()
	}
	return a
}

func (Mapper) ToUpdate(patch Patch) (bson.M, error) {
	s := structs.New(patch)
	s.TagName = "bson"
	return s.Map(), nil
}

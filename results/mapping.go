package results

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/perimetrix/fieldclinic/store"
)

type Row struct {
	Id                 primitive.ObjectID `bson:"_id,omitempty"`
	OwnerId            string             `bson:"owner_id"`
	PatientId          primitive.ObjectID `bson:"patient_id"`
	TestType           TestType           `bson:"test_type"`
	Strategy           string             `bson:"strategy"`
	Eye                Eye                `bson:"eye"`
	Date               string             `bson:"date"`
	Duration           int                `bson:"duration"`
	Reliability        Reliability        `bson:"reliability"`
	Indices            Indices            `bson:"indices"`
	Data               Grid               `bson:"data"`
	Notes              string             `bson:"notes"`
	Status             Status             `bson:"status"`
	CreatedAt          time.Time          `bson:"created_at"`
	AdvancedParameters map[string]any     `bson:"advanced_parameters,omitempty"`
	RightEyeData       *EyeData           `bson:"right_eye_data,omitempty"`
	LeftEyeData        *EyeData           `bson:"left_eye_data,omitempty"`
}

type Mapper struct{}

func (Mapper) ToRow(ownerId string, t TestResult) (Row, error) {
	t = t.Normalize()
	patientId, ok := store.ObjectIDFromString(t.PatientId)
	if !ok {
		// Unknown ids fail the foreign key check before insert.
		patientId = primitive.NilObjectID
	}
	date := t.Date
	if date == "" {
		date = time.Now().UTC().Format(time.DateOnly)
	}
	return Row{
		OwnerId:            ownerId,
		PatientId:          patientId,
		TestType:           t.TestType,
		Strategy:           t.Strategy,
		Eye:                t.Eye,
		Date:               date,
		Duration:           t.Duration,
		Reliability:        t.Reliability,
		Indices:            t.Indices,
		Data:               t.Data,
		Notes:              t.Notes,
		Status:             t.Status,
		CreatedAt:          time.Now().UTC(),
		AdvancedParameters: t.AdvancedParameters,
		RightEyeData:       t.RightEyeData,
		LeftEyeData:        t.LeftEyeData,
	}, nil
}

func (Mapper) FromRow(r Row) TestResult {
	t := TestResult{
		TestType:           r.TestType,
		Strategy:           r.Strategy,
		Eye:                r.Eye,
		Date:               r.Date,
		Duration:           r.Duration,
		Reliability:        r.Reliability,
		Indices:            r.Indices,
		Data:               r.Data,
		Notes:              r.Notes,
		Status:             r.Status,
		AdvancedParameters: r.AdvancedParameters,
		RightEyeData:       r.RightEyeData,
		LeftEyeData:        r.LeftEyeData,
	}
	if !r.Id.IsZero() {
		t.Id = r.Id.Hex()
	}
	if !r.PatientId.IsZero() {
		t.PatientId = r.PatientId.Hex()
	}
	if !r.CreatedAt.IsZero() {
		createdAt := r.CreatedAt.Format(time.RFC3339)
		t.CreatedAt = &createdAt
	}
	return t
}

func (Mapper) ToUpdate(patch Patch) (bson.M, error) {
	update := bson.M{}
	if patch.Notes != nil {
		update["notes"] = *patch.Notes
	}
	return update, nil
}

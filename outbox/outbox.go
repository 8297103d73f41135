package outbox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CollectionName = "outbox"

// EventType identifies the kind of event
type EventType string

const (
	EventTypeTestResultSaved      EventType = "testResultSaved"
	EventTypeAppointmentScheduled EventType = "appointmentScheduled"
)

// Event is the common envelope for all outbox events. Consumers read events in
// createdTime order and remove them once handled.
type Event struct {
	Id          *primitive.ObjectID `bson:"_id,omitempty"`
	OwnerId     string              `bson:"ownerId"`
	EventType   EventType           `bson:"eventType"`
	CreatedTime time.Time           `bson:"createdTime"`
	Payload     bson.Raw            `bson:"payload"`
}

// TestResultSavedPayload is the payload for testResultSaved events
type TestResultSavedPayload struct {
	ResultId         string  `bson:"resultId"`
	PatientId        string  `bson:"patientId"`
	TestType         string  `bson:"testType"`
	Eye              string  `bson:"eye"`
	Date             string  `bson:"date"`
	Status           string  `bson:"status"`
	ReliabilityScore int     `bson:"reliabilityScore"`
	MeanDeviation    float64 `bson:"meanDeviation"`
}

// AppointmentScheduledPayload is the payload for appointmentScheduled events
type AppointmentScheduledPayload struct {
	AppointmentId string `bson:"appointmentId"`
	PatientId     string `bson:"patientId"`
	Date          string `bson:"date"`
	Time          string `bson:"time"`
	Type          string `bson:"type"`
}

//go:generate mockgen --build_flags=--mod=mod -source=./outbox.go -destination=./test/mock_outbox.go -package test

type Repository interface {
	Create(ctx context.Context, event Event) error
	// List returns the most recent events of an owner, newest first
	List(ctx context.Context, ownerId string, limit int64) ([]Event, error)
	Initialize(ctx context.Context) error
}

// NewEvent creates an Event from a typed payload
func NewEvent(ownerId string, eventType EventType, payload interface{}) (Event, error) {
	raw, err := bson.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("error marshaling outbox event payload: %w", err)
	}

	return Event{
		OwnerId:     ownerId,
		EventType:   eventType,
		CreatedTime: time.Now(),
		Payload:     bson.Raw(raw),
	}, nil
}

package gateway

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/appointments"
	"github.com/perimetrix/fieldclinic/auth"
	"github.com/perimetrix/fieldclinic/config"
	"github.com/perimetrix/fieldclinic/deletions"
	"github.com/perimetrix/fieldclinic/outbox"
	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/results"
	"github.com/perimetrix/fieldclinic/store"
)

type (
	PatientsTable     = Table[patients.Patient, patients.Patch]
	TestResultsTable  = Table[results.TestResult, results.Patch]
	AppointmentsTable = Table[appointments.Appointment, appointments.Patch]
)

// Gateway is the single entry point to the backend: table scoped CRUD plus authentication.
type Gateway struct {
	Patients     PatientsTable
	TestResults  TestResultsTable
	Appointments AppointmentsTable

	auth auth.Service
}

type Params struct {
	fx.In

	Database  *mongo.Database
	Config    *config.Config
	Auth      auth.Service
	Outbox    outbox.Repository
	Logger    *zap.SugaredLogger
	Lifecycle fx.Lifecycle
}

type initializer interface {
	Initialize(ctx context.Context) error
}

func New(p Params) (*Gateway, error) {
	patientDeletions := deletions.NewRepository[patients.Row]("patient", []string{"_id"}, p.Database, p.Logger)
	resultDeletions := deletions.NewRepository[results.Row]("test_result", []string{"_id"}, p.Database, p.Logger)
	appointmentDeletions := deletions.NewRepository[appointments.Row]("appointment", []string{"_id"}, p.Database, p.Logger)

	dependents := &patientDependents{
		results:              p.Database.Collection(results.Table),
		resultDeletions:      resultDeletions,
		appointments:         p.Database.Collection(appointments.Table),
		appointmentDeletions: appointmentDeletions,
		logger:               p.Logger,
	}

	patientsCollection := NewCollection[patients.Patient, patients.Row, patients.Patch](
		p.Database,
		patients.Table,
		patients.Mapper{},
		CollectionOptions[patients.Row]{
			Indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: ownerIdField, Value: 1}, {Key: "created_at", Value: -1}},
					Options: options.Index().SetName("OwnerCreatedTime"),
				},
			},
			Sort:         []store.Sort{{Attribute: "created_at"}},
			BeforeDelete: dependents.remove,
			Deletions:    patientDeletions,
		},
		p.Logger,
	)

	references := &patientReferences{
		patients:          p.Database.Collection(patients.Table),
		maintainTestCount: p.Config.MaintainTestCount,
		logger:            p.Logger,
	}
	events := &eventPublisher{
		outbox: p.Outbox,
		logger: p.Logger,
	}

	resultsCollection := NewCollection[results.TestResult, results.Row, results.Patch](
		p.Database,
		results.Table,
		results.Mapper{},
		CollectionOptions[results.Row]{
			Indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: ownerIdField, Value: 1}, {Key: "patient_id", Value: 1}},
					Options: options.Index().SetName("OwnerPatient"),
				},
			},
			Sort: []store.Sort{{Attribute: "created_at", Ascending: true}},
			BeforeInsert: func(ctx context.Context, ownerId string, row *results.Row) error {
				return references.requirePatient(ctx, results.Table, ownerId, row.PatientId)
			},
			AfterInsert: func(ctx context.Context, ownerId string, row results.Row) {
				if row.Status == results.StatusCompleted {
					references.recordVisit(ctx, ownerId, row.PatientId, row.Date)
				}
				events.publish(ctx, ownerId, outbox.EventTypeTestResultSaved, outbox.TestResultSavedPayload{
					ResultId:         row.Id.Hex(),
					PatientId:        row.PatientId.Hex(),
					TestType:         string(row.TestType),
					Eye:              string(row.Eye),
					Date:             row.Date,
					Status:           string(row.Status),
					ReliabilityScore: row.Reliability.Score,
					MeanDeviation:    row.Indices.MD,
				})
			},
			Deletions: resultDeletions,
		},
		p.Logger,
	)

	appointmentsCollection := NewCollection[appointments.Appointment, appointments.Row, appointments.Patch](
		p.Database,
		appointments.Table,
		appointments.Mapper{},
		CollectionOptions[appointments.Row]{
			Indexes: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: ownerIdField, Value: 1}, {Key: "date", Value: 1}, {Key: "time", Value: 1}},
					Options: options.Index().SetName("OwnerSchedule"),
				},
			},
			Sort: []store.Sort{{Attribute: "date", Ascending: true}, {Attribute: "time", Ascending: true}},
			BeforeInsert: func(ctx context.Context, ownerId string, row *appointments.Row) error {
				return references.requirePatient(ctx, appointments.Table, ownerId, row.PatientId)
			},
			AfterInsert: func(ctx context.Context, ownerId string, row appointments.Row) {
				if row.Status == appointments.StatusScheduled {
					events.publish(ctx, ownerId, outbox.EventTypeAppointmentScheduled, outbox.AppointmentScheduledPayload{
						AppointmentId: row.Id.Hex(),
						PatientId:     row.PatientId.Hex(),
						Date:          row.Date,
						Time:          row.Time,
						Type:          row.Type,
					})
				}
			},
			Deletions: appointmentDeletions,
		},
		p.Logger,
	)

	initializers := []initializer{
		patientsCollection,
		resultsCollection,
		appointmentsCollection,
		patientDeletions,
		resultDeletions,
		appointmentDeletions,
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, i := range initializers {
				if err := i.Initialize(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})

	return NewWithTables(patientsCollection, resultsCollection, appointmentsCollection, p.Auth), nil
}

// NewWithTables assembles a gateway from existing tables.
func NewWithTables(p PatientsTable, r TestResultsTable, a AppointmentsTable, authService auth.Service) *Gateway {
	return &Gateway{
		Patients:     p,
		TestResults:  r,
		Appointments: a,
		auth:         authService,
	}
}

func (g *Gateway) SignUp(ctx context.Context, email, password string) (*auth.Session, error) {
	return g.auth.SignUp(ctx, email, password)
}

func (g *Gateway) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	return g.auth.SignIn(ctx, email, password)
}

func (g *Gateway) SignOut(ctx context.Context, token string) error {
	return g.auth.SignOut(ctx, token)
}

func (g *Gateway) GetSession(ctx context.Context, token string) (*auth.Session, error) {
	return g.auth.GetSession(ctx, token)
}

type patientReferences struct {
	patients          *mongo.Collection
	maintainTestCount bool
	logger            *zap.SugaredLogger
}

// requirePatient fails with a foreign key violation unless the owner has a patient with the given id.
func (r *patientReferences) requirePatient(ctx context.Context, table, ownerId string, patientId primitive.ObjectID) error {
	if patientId.IsZero() {
		return ForeignKeyError(table, "insert", "patient_id")
	}
	count, err := r.patients.CountDocuments(ctx, bson.M{"_id": patientId, ownerIdField: ownerId}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if count == 0 {
		return ForeignKeyError(table, "insert", "patient_id")
	}
	return nil
}

// recordVisit keeps the denormalized test counter of a patient in step with completed results.
func (r *patientReferences) recordVisit(ctx context.Context, ownerId string, patientId primitive.ObjectID, date string) {
	if !r.maintainTestCount {
		return
	}

	selector := bson.M{"_id": patientId, ownerIdField: ownerId}
	update := bson.M{
		"$inc": bson.M{"total_tests": 1},
		"$max": bson.M{"last_visit": date},
	}
	if _, err := r.patients.UpdateOne(ctx, selector, update); err != nil {
		r.logger.Warnw("unable to update patient test count", "patientId", patientId.Hex(), "error", err)
	}
}

// patientDependents removes the results and appointments of a patient before the
// patient itself, archiving every removed row.
type patientDependents struct {
	results              *mongo.Collection
	resultDeletions      deletions.Repository[results.Row]
	appointments         *mongo.Collection
	appointmentDeletions deletions.Repository[appointments.Row]
	logger               *zap.SugaredLogger
}

func (d *patientDependents) remove(ctx context.Context, ownerId string, patientId primitive.ObjectID) error {
	if err := removeDependents(ctx, d.results, results.Table, d.resultDeletions, ownerId, patientId, d.logger); err != nil {
		return err
	}
	return removeDependents(ctx, d.appointments, appointments.Table, d.appointmentDeletions, ownerId, patientId, d.logger)
}

func removeDependents[R any](ctx context.Context, collection *mongo.Collection, table string, archive deletions.Repository[R], ownerId string, patientId primitive.ObjectID, logger *zap.SugaredLogger) error {
	selector := bson.M{ownerIdField: ownerId, "patient_id": patientId}
	cursor, err := collection.Find(ctx, selector)
	if err != nil {
		return remoteError(table, "delete", fmt.Errorf("error listing %s of patient: %w", table, err))
	}
	var rows []R
	if err := cursor.All(ctx, &rows); err != nil {
		return remoteError(table, "delete", fmt.Errorf("error decoding %s of patient: %w", table, err))
	}
	if len(rows) == 0 {
		return nil
	}

	for _, row := range rows {
		if err := archive.Create(ctx, row, deletions.Metadata{DeletedByUserId: &ownerId}); err != nil {
			logger.Warnw("unable to archive deleted row", "table", table, "patientId", patientId.Hex(), "error", err)
		}
	}
	if _, err := collection.DeleteMany(ctx, selector); err != nil {
		return remoteError(table, "delete", fmt.Errorf("error deleting %s of patient: %w", table, err))
	}
	logger.Infow("removed patient dependents", "table", table, "patientId", patientId.Hex(), "count", len(rows))
	return nil
}

// eventPublisher records outbox events for inserted rows. Failures are logged and
// never fail the insert.
type eventPublisher struct {
	outbox outbox.Repository
	logger *zap.SugaredLogger
}

func (e *eventPublisher) publish(ctx context.Context, ownerId string, eventType outbox.EventType, payload any) {
	if e.outbox == nil {
		return
	}
	event, err := outbox.NewEvent(ownerId, eventType, payload)
	if err == nil {
		err = e.outbox.Create(ctx, event)
	}
	if err != nil {
		e.logger.Warnw("unable to publish outbox event", "eventType", eventType, "ownerId", ownerId, "error", err)
	}
}

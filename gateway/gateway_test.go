package gateway_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx/fxtest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/appointments"
	appointmentsTest "github.com/perimetrix/fieldclinic/appointments/test"
	"github.com/perimetrix/fieldclinic/auth"
	authTest "github.com/perimetrix/fieldclinic/auth/test"
	"github.com/perimetrix/fieldclinic/config"
	"github.com/perimetrix/fieldclinic/deletions"
	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/gateway"
	"github.com/perimetrix/fieldclinic/outbox"
	outboxTest "github.com/perimetrix/fieldclinic/outbox/test"
	"github.com/perimetrix/fieldclinic/patients"
	patientsTest "github.com/perimetrix/fieldclinic/patients/test"
	"github.com/perimetrix/fieldclinic/pointer"
	"github.com/perimetrix/fieldclinic/results"
	resultsTest "github.com/perimetrix/fieldclinic/results/test"
	dbTest "github.com/perimetrix/fieldclinic/store/test"
	"github.com/perimetrix/fieldclinic/test"
)

var _ = Describe("Gateway", func() {
	var ctrl *gomock.Controller
	var authService *authTest.MockService
	var database *mongo.Database
	var cfg *config.Config
	var gw *gateway.Gateway
	var ctx context.Context

	newGateway := func() *gateway.Gateway {
		lifecycle := fxtest.NewLifecycle(GinkgoT())
		events, err := outbox.NewRepository(database, zap.NewNop().Sugar(), lifecycle)
		Expect(err).ToNot(HaveOccurred())
		g, err := gateway.New(gateway.Params{
			Database:  database,
			Config:    cfg,
			Auth:      authService,
			Outbox:    events,
			Logger:    zap.NewNop().Sugar(),
			Lifecycle: lifecycle,
		})
		Expect(err).ToNot(HaveOccurred())
		lifecycle.RequireStart()
		return g
	}

	BeforeEach(func() {
		database = dbTest.GetTestDatabase()
		ctrl = gomock.NewController(GinkgoT())
		authService = authTest.NewMockService(ctrl)
		cfg = &config.Config{MaintainTestCount: true}
		gw = newGateway()
		ctx = auth.WithAuthData(context.Background(), &auth.Auth{SubjectId: primitive.NewObjectID().Hex()})
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	Describe("Row level security", func() {
		It("rejects calls without an authenticated subject", func() {
			_, err := gw.Patients.Insert(context.Background(), patientsTest.RandomPatient())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(Equal(`new row violates row-level security policy for table "patients"`))
			Expect(err).To(MatchError(errs.Unauthorized))

			var remote *gateway.RemoteError
			Expect(errors.As(err, &remote)).To(BeTrue())
			Expect(remote.Table).To(Equal(patients.Table))
			Expect(remote.Op).To(Equal("insert"))
		})

		It("only lists rows of the authenticated subject", func() {
			_, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())

			other := auth.WithAuthData(context.Background(), &auth.Auth{SubjectId: primitive.NewObjectID().Hex()})
			list, err := gw.Patients.List(other)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(BeEmpty())

			list, err = gw.Patients.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})

		It("does not expose rows of other subjects by id", func() {
			created, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())

			other := auth.WithAuthData(context.Background(), &auth.Auth{SubjectId: primitive.NewObjectID().Hex()})
			Expect(gw.Patients.Delete(other, created.Id)).To(MatchError(errs.NotFound))
		})
	})

	Describe("Patients", func() {
		It("round trips every submitted field", func() {
			patient := patientsTest.RandomPatient()
			created, err := gw.Patients.Insert(ctx, patient)
			Expect(err).ToNot(HaveOccurred())
			Expect(created.Id).ToNot(BeEmpty())
			Expect(created.CreatedAt).ToNot(BeNil())

			patient.Id = created.Id
			patient.CreatedAt = created.CreatedAt
			Expect(*created).To(Equal(patient))

			fetched, err := gw.Patients.Get(ctx, created.Id)
			Expect(err).ToNot(HaveOccurred())
			Expect(fetched.FirstName).To(Equal(patient.FirstName))
			Expect(fetched.MedicalHistory).To(Equal(patient.MedicalHistory))
		})

		It("stores rows with snake case columns", func() {
			created, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())

			id, _ := primitive.ObjectIDFromHex(created.Id)
			var raw bson.M
			Expect(database.Collection(patients.Table).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)).To(Succeed())
			Expect(raw).To(HaveKeyWithValue("first_name", created.FirstName))
			Expect(raw).To(HaveKeyWithValue("date_of_birth", created.DateOfBirth))
			Expect(raw).To(HaveKey("owner_id"))
			Expect(raw).ToNot(HaveKey("firstName"))
		})

		It("lists the most recently created patient first", func() {
			first, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())
			second, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())

			list, err := gw.Patients.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(2))
			Expect(list[0].Id).To(Equal(second.Id))
			Expect(list[1].Id).To(Equal(first.Id))
		})

		It("only updates the fields present in the patch", func() {
			created, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())

			phone := "555-0100"
			updated, err := gw.Patients.Update(ctx, created.Id, patients.Patch{Phone: &phone})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Phone).To(Equal(phone))
			Expect(updated.FirstName).To(Equal(created.FirstName))
			Expect(updated.Email).To(Equal(created.Email))
		})

		It("returns the current record for an empty patch", func() {
			created, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())

			updated, err := gw.Patients.Update(ctx, created.Id, patients.Patch{})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Id).To(Equal(created.Id))
		})

		It("archives deleted patients", func() {
			created, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())
			Expect(gw.Patients.Delete(ctx, created.Id)).To(Succeed())

			_, err = gw.Patients.Get(ctx, created.Id)
			Expect(err).To(MatchError(errs.NotFound))

			id, _ := primitive.ObjectIDFromHex(created.Id)
			count, err := database.Collection(deletions.CollectionName("patient")).CountDocuments(ctx, bson.M{"patient._id": id})
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(BeEquivalentTo(1))
		})

		It("removes and archives the results and appointments of a deleted patient", func() {
			patient, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())
			other, err := gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())

			result, err := gw.TestResults.Insert(ctx, resultsTest.RandomTestResult(patient.Id))
			Expect(err).ToNot(HaveOccurred())
			_, err = gw.Appointments.Insert(ctx, appointmentsTest.RandomAppointment(patient.Id))
			Expect(err).ToNot(HaveOccurred())
			kept, err := gw.TestResults.Insert(ctx, resultsTest.RandomTestResult(other.Id))
			Expect(err).ToNot(HaveOccurred())

			Expect(gw.Patients.Delete(ctx, patient.Id)).To(Succeed())

			remaining, err := gw.TestResults.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(remaining).To(HaveLen(1))
			Expect(remaining[0].Id).To(Equal(kept.Id))
			for _, r := range remaining {
				_, err := gw.Patients.Get(ctx, r.PatientId)
				Expect(err).ToNot(HaveOccurred())
			}

			scheduled, err := gw.Appointments.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(scheduled).To(BeEmpty())

			resultId, _ := primitive.ObjectIDFromHex(result.Id)
			count, err := database.Collection(deletions.CollectionName("test_result")).CountDocuments(ctx, bson.M{"test_result._id": resultId})
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(BeEquivalentTo(1))

			patientId, _ := primitive.ObjectIDFromHex(patient.Id)
			count, err = database.Collection(deletions.CollectionName("appointment")).CountDocuments(ctx, bson.M{"appointment.patient_id": patientId})
			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(BeEquivalentTo(1))
		})

		It("fails with not found for unknown ids", func() {
			Expect(gw.Patients.Delete(ctx, primitive.NewObjectID().Hex())).To(MatchError(errs.NotFound))
			Expect(gw.Patients.Delete(ctx, "not-an-object-id")).To(MatchError(errs.NotFound))
		})
	})

	Describe("Test results", func() {
		var patient *patients.Patient

		BeforeEach(func() {
			var err error
			p := patientsTest.RandomPatient()
			p.TotalTests = 0
			p.LastVisit = nil
			patient, err = gw.Patients.Insert(ctx, p)
			Expect(err).ToNot(HaveOccurred())
		})

		It("rejects results of unknown patients with a foreign key violation", func() {
			_, err := gw.TestResults.Insert(ctx, resultsTest.RandomTestResult(primitive.NewObjectID().Hex()))
			Expect(err).To(MatchError(errs.ConstraintViolation))
			Expect(err.Error()).To(Equal(`insert or update on table "test_results" violates foreign key constraint "test_results_patient_id_fkey"`))
		})

		It("stores per eye data and advanced parameters", func() {
			result := resultsTest.RandomBothEyesResult(patient.Id)
			created, err := gw.TestResults.Insert(ctx, result)
			Expect(err).ToNot(HaveOccurred())
			Expect(created.PatientId).To(Equal(patient.Id))
			Expect(created.RightEyeData).ToNot(BeNil())
			Expect(created.LeftEyeData).ToNot(BeNil())
			Expect(created.RightEyeData.Data).To(Equal(result.RightEyeData.Data))
			Expect(created.AdvancedParameters).To(HaveKey("backgroundLuminance"))
			Expect(created.CreatedAt).ToNot(BeNil())
		})

		It("maintains the patient test counter", func() {
			result := resultsTest.RandomTestResult(patient.Id)
			_, err := gw.TestResults.Insert(ctx, result)
			Expect(err).ToNot(HaveOccurred())
			_, err = gw.TestResults.Insert(ctx, result)
			Expect(err).ToNot(HaveOccurred())

			updated, err := gw.Patients.Get(ctx, patient.Id)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.TotalTests).To(Equal(2))
			Expect(updated.LastVisit).To(Equal(&result.Date))
		})

		It("does not count cancelled results", func() {
			result := resultsTest.RandomTestResult(patient.Id)
			result.Status = results.StatusCancelled
			_, err := gw.TestResults.Insert(ctx, result)
			Expect(err).ToNot(HaveOccurred())

			updated, err := gw.Patients.Get(ctx, patient.Id)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.TotalTests).To(Equal(0))
		})

		It("leaves the counter alone when disabled", func() {
			cfg.MaintainTestCount = false
			gw = newGateway()

			_, err := gw.TestResults.Insert(ctx, resultsTest.RandomTestResult(patient.Id))
			Expect(err).ToNot(HaveOccurred())

			updated, err := gw.Patients.Get(ctx, patient.Id)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.TotalTests).To(Equal(0))
		})

		It("updates notes", func() {
			created, err := gw.TestResults.Insert(ctx, resultsTest.RandomTestResult(patient.Id))
			Expect(err).ToNot(HaveOccurred())

			notes := "Repeat in six months"
			updated, err := gw.TestResults.Update(ctx, created.Id, results.Patch{Notes: &notes})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Notes).To(Equal(notes))
		})
	})

	Describe("Appointments", func() {
		var patient *patients.Patient

		BeforeEach(func() {
			var err error
			patient, err = gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())
		})

		It("lists appointments by date then time", func() {
			late := appointmentsTest.RandomAppointment(patient.Id)
			late.Date, late.Time = "2031-05-02", "09:00"
			early := appointmentsTest.RandomAppointment(patient.Id)
			early.Date, early.Time = "2031-05-01", "16:30"
			earlier := appointmentsTest.RandomAppointment(patient.Id)
			earlier.Date, earlier.Time = "2031-05-01", "08:15"

			for _, a := range []appointments.Appointment{late, early, earlier} {
				_, err := gw.Appointments.Insert(ctx, a)
				Expect(err).ToNot(HaveOccurred())
			}

			list, err := gw.Appointments.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(HaveLen(3))
			Expect(list[0].Time).To(Equal("08:15"))
			Expect(list[1].Time).To(Equal("16:30"))
			Expect(list[2].Date).To(Equal("2031-05-02"))
		})

		It("updates and deletes appointments", func() {
			created, err := gw.Appointments.Insert(ctx, appointmentsTest.RandomAppointment(patient.Id))
			Expect(err).ToNot(HaveOccurred())
			Expect(created.Status).To(Equal(appointments.StatusScheduled))

			updated, err := gw.Appointments.Update(ctx, created.Id, appointments.Patch{Status: pointer.FromAny(appointments.StatusCompleted)})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(appointments.StatusCompleted))
			Expect(updated.Date).To(Equal(created.Date))

			Expect(gw.Appointments.Delete(ctx, created.Id)).To(Succeed())
			list, err := gw.Appointments.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(list).To(BeEmpty())
		})

		It("rejects appointments of unknown patients", func() {
			_, err := gw.Appointments.Insert(ctx, appointmentsTest.RandomAppointment(primitive.NewObjectID().Hex()))
			Expect(err.Error()).To(ContainSubstring("appointments_patient_id_fkey"))
		})
	})

	Describe("Outbox events", func() {
		var patient *patients.Patient
		var ownerId string

		ownerEvents := func() []outbox.Event {
			cursor, err := database.Collection(outbox.CollectionName).Find(context.Background(), bson.M{"ownerId": ownerId})
			Expect(err).ToNot(HaveOccurred())
			var list []outbox.Event
			Expect(cursor.All(context.Background(), &list)).To(Succeed())
			return list
		}

		BeforeEach(func() {
			var err error
			patient, err = gw.Patients.Insert(ctx, patientsTest.RandomPatient())
			Expect(err).ToNot(HaveOccurred())
			ownerId = auth.GetAuthData(ctx).SubjectId
		})

		It("publishes an event for every saved test result", func() {
			created, err := gw.TestResults.Insert(ctx, resultsTest.RandomTestResult(patient.Id))
			Expect(err).ToNot(HaveOccurred())

			list := ownerEvents()
			Expect(list).To(HaveLen(1))
			Expect(list[0].EventType).To(Equal(outbox.EventTypeTestResultSaved))

			var payload outbox.TestResultSavedPayload
			Expect(bson.Unmarshal(list[0].Payload, &payload)).To(Succeed())
			Expect(payload.ResultId).To(Equal(created.Id))
			Expect(payload.PatientId).To(Equal(patient.Id))
		})

		It("keeps the inserted row when the event cannot be published", func() {
			failing := outboxTest.NewMockRepository(ctrl)
			failing.EXPECT().Create(gomock.Any(), test.Match(func(e outbox.Event) bool {
				return e.EventType == outbox.EventTypeTestResultSaved && e.OwnerId == ownerId
			})).Return(errors.New("outbox unavailable"))

			lifecycle := fxtest.NewLifecycle(GinkgoT())
			g, err := gateway.New(gateway.Params{
				Database:  database,
				Config:    cfg,
				Auth:      authService,
				Outbox:    failing,
				Logger:    zap.NewNop().Sugar(),
				Lifecycle: lifecycle,
			})
			Expect(err).ToNot(HaveOccurred())
			lifecycle.RequireStart()

			created, err := g.TestResults.Insert(ctx, resultsTest.RandomTestResult(patient.Id))
			Expect(err).ToNot(HaveOccurred())
			Expect(created.Id).ToNot(BeEmpty())
		})

		It("publishes an event for scheduled appointments only", func() {
			scheduled := appointmentsTest.RandomAppointment(patient.Id)
			scheduled.Status = appointments.StatusScheduled
			completed := appointmentsTest.RandomAppointment(patient.Id)
			completed.Status = appointments.StatusCompleted

			created, err := gw.Appointments.Insert(ctx, scheduled)
			Expect(err).ToNot(HaveOccurred())
			_, err = gw.Appointments.Insert(ctx, completed)
			Expect(err).ToNot(HaveOccurred())

			list := ownerEvents()
			Expect(list).To(HaveLen(1))
			Expect(list[0].EventType).To(Equal(outbox.EventTypeAppointmentScheduled))

			var payload outbox.AppointmentScheduledPayload
			Expect(bson.Unmarshal(list[0].Payload, &payload)).To(Succeed())
			Expect(payload.AppointmentId).To(Equal(created.Id))
			Expect(payload.Date).To(Equal(scheduled.Date))
		})
	})

	Describe("Auth", func() {
		It("delegates sign in to the auth service", func() {
			session := &auth.Session{AccessToken: "token"}
			authService.EXPECT().SignIn(gomock.Any(), "clinician@example.com", "password1").Return(session, nil)

			result, err := gw.SignIn(context.Background(), "clinician@example.com", "password1")
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal(session))
		})
	})
})

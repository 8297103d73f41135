package datasync_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/appointments"
	appointmentsTest "github.com/perimetrix/fieldclinic/appointments/test"
	"github.com/perimetrix/fieldclinic/datasync"
	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/gateway"
	gatewayTest "github.com/perimetrix/fieldclinic/gateway/test"
	"github.com/perimetrix/fieldclinic/patients"
	patientsTest "github.com/perimetrix/fieldclinic/patients/test"
	"github.com/perimetrix/fieldclinic/preferences"
	"github.com/perimetrix/fieldclinic/results"
	resultsTest "github.com/perimetrix/fieldclinic/results/test"
	"github.com/perimetrix/fieldclinic/state"
	"github.com/perimetrix/fieldclinic/test"
)

var _ = Describe("Service", func() {
	var ctrl *gomock.Controller
	var patientsTable *gatewayTest.MockTable[patients.Patient, patients.Patch]
	var resultsTable *gatewayTest.MockTable[results.TestResult, results.Patch]
	var appointmentsTable *gatewayTest.MockTable[appointments.Appointment, appointments.Patch]
	var store *state.Store
	var service *datasync.Service
	var ctx context.Context

	withId := func(p patients.Patient) *patients.Patient {
		p.Id = primitive.NewObjectID().Hex()
		return &p
	}

	BeforeEach(func() {
		ctx = context.Background()
		ctrl = gomock.NewController(GinkgoT())
		patientsTable = gatewayTest.NewMockTable[patients.Patient, patients.Patch](ctrl)
		resultsTable = gatewayTest.NewMockTable[results.TestResult, results.Patch](ctrl)
		appointmentsTable = gatewayTest.NewMockTable[appointments.Appointment, appointments.Patch](ctrl)
		store = state.New("user-1", preferences.NewMemoryStore(), zap.NewNop().Sugar())
		service = datasync.NewServiceWithTables(patientsTable, resultsTable, appointmentsTable, store, zap.NewNop().Sugar())
	})

	AfterEach(func() {
		ctrl.Finish()
	})

	Describe("Load", func() {
		It("replaces every collection and clears the error", func() {
			store.SetError("failed to load patients: previous")
			patient := withId(patientsTest.RandomPatient())
			gomock.InOrder(
				patientsTable.EXPECT().List(ctx).Return([]patients.Patient{*patient}, nil),
				resultsTable.EXPECT().List(ctx).Return([]results.TestResult{resultsTest.RandomTestResult(patient.Id)}, nil),
				appointmentsTable.EXPECT().List(ctx).Return([]appointments.Appointment{
					{Id: "2", Date: "2031-02-01", Time: "09:00"},
					{Id: "1", Date: "2031-01-01", Time: "09:00"},
				}, nil),
			)

			Expect(service.Load(ctx)).To(Succeed())

			snapshot := store.Snapshot()
			Expect(snapshot.Patients).To(HaveLen(1))
			Expect(snapshot.TestResults).To(HaveLen(1))
			Expect(snapshot.Appointments[0].Id).To(Equal("1"))
			Expect(snapshot.Error).To(BeEmpty())
			Expect(snapshot.Loading).To(BeFalse())
		})

		It("aborts the cycle on the first failure", func() {
			store.SetAppointments([]appointments.Appointment{{Id: "kept"}})
			patientsTable.EXPECT().List(ctx).Return([]patients.Patient{}, nil)
			resultsTable.EXPECT().List(ctx).Return(nil, gateway.NewRemoteError(results.Table, "list", errs.BadGateway, "network error: failed to reach backend"))

			err := service.Load(ctx)
			Expect(err).To(MatchError(errs.BadGateway))

			snapshot := store.Snapshot()
			Expect(snapshot.Error).To(Equal("failed to load test results: network error: failed to reach backend"))
			Expect(snapshot.Appointments).To(HaveLen(1))
			Expect(snapshot.Loading).To(BeFalse())
		})

		It("sets loading while fetching", func() {
			var loading []bool
			store.Subscribe(func(s state.State) {
				loading = append(loading, s.Loading)
			})
			patientsTable.EXPECT().List(ctx).Return(nil, errors.New("boom"))

			Expect(service.Load(ctx)).ToNot(Succeed())
			Expect(loading[0]).To(BeTrue())
			Expect(loading[len(loading)-1]).To(BeFalse())
		})
	})

	Describe("Patients", func() {
		It("prepends added patients", func() {
			store.SetPatients([]patients.Patient{*withId(patientsTest.RandomPatient())})
			patient := patientsTest.RandomPatient()
			created := withId(patient)
			patientsTable.EXPECT().Insert(ctx, patient).Return(created, nil)

			result, err := service.AddPatient(ctx, patient)
			Expect(err).ToNot(HaveOccurred())
			Expect(result).To(Equal(created))
			Expect(store.Snapshot().Patients[0].Id).To(Equal(created.Id))
		})

		It("validates patients before calling the backend", func() {
			_, err := service.AddPatient(ctx, patients.Patient{})
			Expect(err).To(MatchError(errs.BadRequest))
		})

		It("wraps backend failures", func() {
			patient := patientsTest.RandomPatient()
			patientsTable.EXPECT().Insert(ctx, patient).Return(nil, gateway.NewRemoteError(patients.Table, "insert", errs.Duplicate, "duplicate key value"))

			_, err := service.AddPatient(ctx, patient)
			Expect(err).To(MatchError("failed to add patient: duplicate key value"))
			Expect(store.Snapshot().Patients).To(BeEmpty())
		})

		It("sends only the patch and replaces the stored record", func() {
			existing := withId(patientsTest.RandomPatient())
			store.SetPatients([]patients.Patient{*existing})
			phone := "555-0100"
			patch := patients.Patch{Phone: &phone}
			updated := *existing
			updated.Phone = phone
			patientsTable.EXPECT().Update(ctx, existing.Id, patch).Return(&updated, nil)

			_, err := service.UpdatePatient(ctx, existing.Id, patch)
			Expect(err).ToNot(HaveOccurred())
			Expect(store.Snapshot().Patients[0].Phone).To(Equal(phone))
		})

		It("removes deleted patients", func() {
			existing := withId(patientsTest.RandomPatient())
			store.SetPatients([]patients.Patient{*existing})
			patientsTable.EXPECT().Delete(ctx, existing.Id).Return(nil)

			Expect(service.DeletePatient(ctx, existing.Id)).To(Succeed())
			Expect(store.Snapshot().Patients).To(BeEmpty())
		})

		It("drops the results and appointments of deleted patients", func() {
			existing := withId(patientsTest.RandomPatient())
			other := withId(patientsTest.RandomPatient())
			store.SetPatients([]patients.Patient{*existing, *other})
			kept := resultsTest.RandomTestResult(other.Id)
			store.SetTestResults([]results.TestResult{resultsTest.RandomTestResult(existing.Id), kept})
			store.SetAppointments([]appointments.Appointment{appointmentsTest.RandomAppointment(existing.Id)})
			patientsTable.EXPECT().Delete(ctx, existing.Id).Return(nil)

			Expect(service.DeletePatient(ctx, existing.Id)).To(Succeed())

			snapshot := store.Snapshot()
			Expect(snapshot.Patients).To(Equal([]patients.Patient{*other}))
			Expect(snapshot.TestResults).To(Equal([]results.TestResult{kept}))
			Expect(snapshot.Appointments).To(BeEmpty())
		})

		It("keeps the results of a patient whose delete failed", func() {
			existing := withId(patientsTest.RandomPatient())
			store.SetPatients([]patients.Patient{*existing})
			store.SetTestResults([]results.TestResult{resultsTest.RandomTestResult(existing.Id)})
			patientsTable.EXPECT().Delete(ctx, existing.Id).Return(errors.New("connection refused"))

			Expect(service.DeletePatient(ctx, existing.Id)).ToNot(Succeed())
			Expect(store.Snapshot().Patients).To(HaveLen(1))
			Expect(store.Snapshot().TestResults).To(HaveLen(1))
		})

		It("leaves the store unchanged when deleting an unknown patient", func() {
			existing := withId(patientsTest.RandomPatient())
			store.SetPatients([]patients.Patient{*existing})
			missing := primitive.NewObjectID().Hex()
			patientsTable.EXPECT().Delete(ctx, missing).Return(gateway.NewRemoteError(patients.Table, "delete", errs.NotFound, "no row"))

			Expect(service.DeletePatient(ctx, missing)).To(Succeed())
			Expect(store.Snapshot().Patients).To(Equal([]patients.Patient{*existing}))
		})

		It("propagates other delete failures", func() {
			patientsTable.EXPECT().Delete(ctx, "id").Return(errors.New("connection refused"))
			Expect(service.DeletePatient(ctx, "id")).To(MatchError("failed to delete patient: connection refused"))
		})
	})

	Describe("Test results", func() {
		It("appends results and refreshes the patient counters", func() {
			patient := withId(patientsTest.RandomPatient())
			store.SetPatients([]patients.Patient{*patient})
			result := resultsTest.RandomBothEyesResult(patient.Id)
			created := result
			created.Id = primitive.NewObjectID().Hex()
			counted := *patient
			counted.TotalTests = patient.TotalTests + 1

			resultsTable.EXPECT().Insert(ctx, result).Return(&created, nil)
			patientsTable.EXPECT().Get(ctx, patient.Id).Return(&counted, nil)

			_, err := service.AddTestResult(ctx, result)
			Expect(err).ToNot(HaveOccurred())
			snapshot := store.Snapshot()
			Expect(snapshot.TestResults).To(HaveLen(1))
			Expect(snapshot.TestResults[0].RightEyeData).ToNot(BeNil())
			Expect(snapshot.Patients[0].TotalTests).To(Equal(counted.TotalTests))
		})

		It("rejects results with mismatched grids before calling the backend", func() {
			result := resultsTest.RandomBothEyesResult(primitive.NewObjectID().Hex())
			result.RightEyeData.Data = resultsTest.RandomGrid(4, 4)
			_, err := service.AddTestResult(ctx, result)
			Expect(err).To(MatchError(errs.BadRequest))
		})

		It("is not idempotent", func() {
			patientId := primitive.NewObjectID().Hex()
			result := resultsTest.RandomTestResult(patientId)
			resultsTable.EXPECT().Insert(ctx, result).DoAndReturn(func(_ context.Context, r results.TestResult) (*results.TestResult, error) {
				r.Id = primitive.NewObjectID().Hex()
				return &r, nil
			}).Times(2)
			patientsTable.EXPECT().Get(ctx, patientId).Return(nil, errors.New("unavailable")).Times(2)

			for i := 0; i < 2; i++ {
				_, err := service.AddTestResult(ctx, result)
				Expect(err).ToNot(HaveOccurred())
			}
			Expect(store.Snapshot().TestResults).To(HaveLen(2))
		})
	})

	Describe("Appointments", func() {
		It("keeps the store sorted after adding", func() {
			patientId := primitive.NewObjectID().Hex()
			store.SetAppointments([]appointments.Appointment{{Id: "late", Date: "2099-12-31", Time: "23:00"}})
			appointment := appointmentsTest.RandomAppointment(patientId)
			created := appointment
			created.Id = "new"
			appointmentsTable.EXPECT().Insert(ctx, appointment).Return(&created, nil)

			_, err := service.AddAppointment(ctx, appointment)
			Expect(err).ToNot(HaveOccurred())
			Expect(store.Snapshot().Appointments[0].Id).To(Equal("new"))
		})

		It("updates and deletes appointments", func() {
			existing := appointmentsTest.RandomAppointment(primitive.NewObjectID().Hex())
			existing.Id = "a"
			store.SetAppointments([]appointments.Appointment{existing})

			status := appointments.StatusNoShow
			patch := appointments.Patch{Status: &status}
			updated := existing
			updated.Status = status
			appointmentsTable.EXPECT().Update(ctx, "a", patch).Return(&updated, nil)
			appointmentsTable.EXPECT().Delete(ctx, "a").Return(nil)

			_, err := service.UpdateAppointment(ctx, "a", patch)
			Expect(err).ToNot(HaveOccurred())
			Expect(store.Snapshot().Appointments[0].Status).To(Equal(status))

			Expect(service.DeleteAppointment(ctx, "a")).To(Succeed())
			Expect(store.Snapshot().Appointments).To(BeEmpty())
		})

		It("validates appointments before calling the backend", func() {
			appointment := appointmentsTest.RandomAppointment(test.Faker.UUID().V4())
			appointment.Time = "25:99"
			_, err := service.AddAppointment(ctx, appointment)
			Expect(err).To(MatchError(errs.BadRequest))
		})
	})
})

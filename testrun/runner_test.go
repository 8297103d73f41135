package testrun_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/preferences"
	"github.com/perimetrix/fieldclinic/results"
	"github.com/perimetrix/fieldclinic/state"
	"github.com/perimetrix/fieldclinic/testrun"
)

var _ = Describe("Runner", func() {
	var clock *testrun.ManualClock
	var store *state.Store
	var sim *scriptedSimulator
	var persister *fakePersister
	var options testrun.Options
	var runner *testrun.Runner
	var patient patients.Patient

	BeforeEach(func() {
		clock = testrun.NewManualClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
		store = state.New("clinician", preferences.NewMemoryStore(), zap.NewNop().Sugar())
		sim = &scriptedSimulator{seen: true}
		persister = &fakePersister{}
		options = testrun.Options{SaveRedirectDelay: 2 * time.Second}
		patient = patients.Patient{Id: "patient-1", FirstName: "Ada", LastName: "Moreno", Status: patients.StatusActive}
	})

	JustBeforeEach(func() {
		runner = testrun.NewRunner(store, persister, sim, clock, options, zap.NewNop().Sugar())
		DeferCleanup(runner.Close)
	})

	seconds := func(n int) {
		clock.Advance(time.Duration(n) * time.Second)
	}

	start := func(eye results.Eye, duration int) {
		Expect(runner.Setup(patient, configuration(eye, duration))).To(Succeed())
		Expect(runner.Start(context.Background())).To(Succeed())
	}

	It("requires a patient and a configuration", func() {
		Expect(runner.Start(context.Background())).To(MatchError(testrun.ErrNoPatient))

		store.SetCurrentPatient(&patient)
		Expect(runner.Start(context.Background())).To(MatchError(testrun.ErrNoConfiguration))
	})

	It("rejects an invalid configuration", func() {
		config := configuration(results.EyeRight, 0)
		Expect(runner.Setup(patient, config)).To(MatchError(errs.BadRequest))
		Expect(store.Snapshot().CurrentTest).To(BeNil())
	})

	It("runs a single eye test to completion and saves it once", func() {
		start(results.EyeRight, 300)
		Expect(store.Snapshot().IsTestInProgress).To(BeTrue())

		seconds(150)
		Expect(runner.Status().Progress).To(Equal(50))
		Expect(store.Snapshot().TestProgress).To(Equal(50))

		seconds(200)
		status := runner.Status()
		Expect(status.Phase).To(Equal(testrun.PhaseSaved))
		Expect(status.Progress).To(Equal(100))
		Expect(status.Remaining).To(BeZero())
		Expect(status.Saving).To(BeFalse())
		Expect(status.Result).ToNot(BeNil())
		Expect(store.Snapshot().IsTestInProgress).To(BeFalse())

		saved := persister.Saved()
		Expect(saved).To(HaveLen(1))
		Expect(saved[0].PatientId).To(Equal(patient.Id))
		Expect(saved[0].Status).To(Equal(results.StatusCompleted))
		Expect(saved[0].Eye).To(Equal(results.EyeRight))
		Expect(saved[0].Duration).To(Equal(300))
		Expect(saved[0].Date).To(Equal("2026-03-14"))
		Expect(saved[0].RightEyeData).To(BeNil())
		Expect(sim.measured).To(Equal([]results.Eye{results.EyeRight}))
	})

	It("averages both eyes into the top level values", func() {
		start(results.EyeBoth, 120)
		seconds(120)

		saved := persister.Saved()
		Expect(saved).To(HaveLen(1))
		result := saved[0]
		Expect(result.RightEyeData).ToNot(BeNil())
		Expect(result.LeftEyeData).ToNot(BeNil())

		rightRows, rightCols, ok := result.RightEyeData.Data.Shape()
		Expect(ok).To(BeTrue())
		leftRows, leftCols, _ := result.LeftEyeData.Data.Shape()
		Expect(leftRows).To(Equal(rightRows))
		Expect(leftCols).To(Equal(rightCols))

		Expect(result.Data[0][0]).To(Equal(25.5))
		Expect(result.Indices.MD).To(Equal(-2.7))
		Expect(result.Indices.PSD).To(Equal(1.9))
		Expect(result.Indices.VFI).To(Equal(95))
		Expect(result.Indices.GHT).To(Equal(results.GHTBorderline))
		Expect(result.Reliability.Score).To(Equal(93))
	})

	It("emits the time warnings", func() {
		start(results.EyeRight, 90)
		seconds(31)

		messages := make([]string, 0)
		for _, n := range runner.Status().Notifications {
			messages = append(messages, n.Message)
		}
		Expect(messages).To(ContainElement("1 minute remaining"))
	})

	It("freezes while paused and resumes from the same remaining time", func() {
		start(results.EyeRight, 120)
		seconds(20)
		Expect(runner.Pause()).To(Succeed())
		before := runner.Status()

		seconds(45)
		during := runner.Status()
		Expect(during.Phase).To(Equal(testrun.PhasePaused))
		Expect(during.Remaining).To(Equal(before.Remaining))
		Expect(during.Progress).To(Equal(before.Progress))
		Expect(during.SeenPoints).To(Equal(before.SeenPoints))
		Expect(during.Counters).To(Equal(before.Counters))

		Expect(runner.Resume()).To(Succeed())
		seconds(1)
		Expect(runner.Status().Remaining).To(Equal(before.Remaining - 1))
	})

	It("does not persist a stopped run by default", func() {
		start(results.EyeRight, 120)
		seconds(10)
		Expect(runner.Stop()).To(Succeed())
		seconds(200)

		Expect(runner.Status().Phase).To(Equal(testrun.PhaseStopped))
		Expect(persister.Saved()).To(BeEmpty())
		Expect(store.Snapshot().IsTestInProgress).To(BeFalse())
	})

	When("cancelled runs are persisted", func() {
		BeforeEach(func() {
			options.PersistCancelled = true
		})

		It("saves the stopped run as cancelled", func() {
			start(results.EyeLeft, 120)
			seconds(30)
			Expect(runner.Stop()).To(Succeed())

			saved := persister.Saved()
			Expect(saved).To(HaveLen(1))
			Expect(saved[0].Status).To(Equal(results.StatusCancelled))
			Expect(saved[0].Duration).To(Equal(30))
		})

		It("saves once when stop arrives after completion", func() {
			start(results.EyeRight, 10)
			seconds(10)
			Expect(runner.Stop()).To(Succeed())
			seconds(10)

			saved := persister.Saved()
			Expect(saved).To(HaveLen(1))
			Expect(saved[0].Status).To(Equal(results.StatusCompleted))
		})
	})

	It("ignores stop while the completed run is saving", func() {
		persister.hook = func() {
			Expect(runner.Status().Saving).To(BeTrue())
			Expect(runner.Stop()).To(Succeed())
		}
		start(results.EyeRight, 5)
		seconds(5)

		Expect(persister.Saved()).To(HaveLen(1))
		Expect(runner.Status().Phase).To(Equal(testrun.PhaseSaved))
	})

	It("navigates away after the save delay", func() {
		start(results.EyeRight, 5)
		seconds(5)
		Expect(runner.Status().NavigateAway).To(BeFalse())
		Expect(store.Snapshot().CurrentTest).ToNot(BeNil())

		seconds(2)
		Expect(runner.Status().NavigateAway).To(BeTrue())
		Expect(store.Snapshot().CurrentTest).To(BeNil())
	})

	It("classifies a row-level security failure as an authentication problem", func() {
		persister.err = errors.New(`new row violates row-level security policy for table "test_results"`)
		start(results.EyeRight, 5)
		seconds(5)

		status := runner.Status()
		Expect(status.Phase).To(Equal(testrun.PhaseSaved))
		Expect(status.Saving).To(BeFalse())
		Expect(status.Failure).To(Equal(testrun.FailureAuth))
		Expect(status.NavigateAway).To(BeFalse())
		Expect(status.Notifications[0].Kind).To(Equal(testrun.NotificationWarning))
		Expect(status.Notifications[0].Message).To(Equal(testrun.FailureAuth.Message()))
		for _, n := range status.Notifications {
			Expect(n.Kind).To(BeElementOf(testrun.NotificationSuccess, testrun.NotificationWarning, testrun.NotificationInfo))
		}
	})

	It("accepts a new run once the previous one is saved", func() {
		start(results.EyeRight, 5)
		Expect(runner.Setup(patient, configuration(results.EyeLeft, 5))).To(MatchError(testrun.ErrRunInProgress))

		seconds(5)
		start(results.EyeLeft, 5)
		seconds(5)
		Expect(persister.Saved()).To(HaveLen(2))
	})
})

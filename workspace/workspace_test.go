package workspace_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/appointments"
	"github.com/perimetrix/fieldclinic/datasync"
	gatewayTest "github.com/perimetrix/fieldclinic/gateway/test"
	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/preferences"
	"github.com/perimetrix/fieldclinic/results"
	"github.com/perimetrix/fieldclinic/state"
	"github.com/perimetrix/fieldclinic/testrun"
	"github.com/perimetrix/fieldclinic/workspace"
)

type mockSources struct {
	patients     *gatewayTest.MockTable[patients.Patient, patients.Patch]
	results      *gatewayTest.MockTable[results.TestResult, results.Patch]
	appointments *gatewayTest.MockTable[appointments.Appointment, appointments.Patch]
}

func (m *mockSources) Sync(store *state.Store) *datasync.Service {
	return datasync.NewServiceWithTables(m.patients, m.results, m.appointments, store, zap.NewNop().Sugar())
}

func (m *mockSources) Simulator() testrun.Simulator {
	return testrun.NewRandomSimulator(1)
}

var _ = Describe("Registry", func() {
	var ctrl *gomock.Controller
	var sources *mockSources
	var clock *testrun.ManualClock
	var registry *workspace.Registry
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		ctrl = gomock.NewController(GinkgoT())
		sources = &mockSources{
			patients:     gatewayTest.NewMockTable[patients.Patient, patients.Patch](ctrl),
			results:      gatewayTest.NewMockTable[results.TestResult, results.Patch](ctrl),
			appointments: gatewayTest.NewMockTable[appointments.Appointment, appointments.Patch](ctrl),
		}
		clock = testrun.NewManualClock(time.Now())
		registry = workspace.NewRegistryWithSources(sources, preferences.NewMemoryStore(), clock, testrun.Options{}, zap.NewNop().Sugar())
	})

	AfterEach(func() {
		registry.Close()
		ctrl.Finish()
	})

	expectLoad := func(times int) {
		sources.patients.EXPECT().List(gomock.Any()).Return([]patients.Patient{{Id: "p1"}}, nil).Times(times)
		sources.results.EXPECT().List(gomock.Any()).Return(nil, nil).Times(times)
		sources.appointments.EXPECT().List(gomock.Any()).Return(nil, nil).Times(times)
	}

	It("loads a workspace once on first access", func() {
		expectLoad(1)

		first := registry.Get(ctx, "user-1")
		second := registry.Get(ctx, "user-1")

		Expect(second).To(BeIdenticalTo(first))
		Expect(first.Store.Snapshot().Patients).To(HaveLen(1))
		Expect(first.Sync.Store()).To(BeIdenticalTo(first.Store))
	})

	It("keeps users apart", func() {
		expectLoad(2)

		first := registry.Get(ctx, "user-1")
		second := registry.Get(ctx, "user-2")
		Expect(second).ToNot(BeIdenticalTo(first))

		first.Store.SetError("only mine")
		Expect(second.Store.Snapshot().Error).To(BeEmpty())
	})

	It("records a failed load and retries it on reload", func() {
		sources.patients.EXPECT().List(gomock.Any()).Return(nil, errors.New("connection refused"))

		w := registry.Get(ctx, "user-1")
		Expect(w.Store.Snapshot().Error).To(ContainSubstring("failed to load patients"))

		expectLoad(1)
		Expect(w.Reload(ctx)).To(Succeed())
		Expect(w.Store.Snapshot().Error).To(BeEmpty())
	})

	It("creates a fresh workspace after discarding one", func() {
		expectLoad(2)

		first := registry.Get(ctx, "user-1")
		registry.Discard("user-1")
		Expect(registry.Get(ctx, "user-1")).ToNot(BeIdenticalTo(first))
	})
})

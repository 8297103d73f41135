package datasync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/appointments"
	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/gateway"
	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/results"
	"github.com/perimetrix/fieldclinic/state"
)

// Service keeps a workspace store in step with the backend. Every operation calls the
// gateway first and only touches the store once the call succeeded.
type Service struct {
	patients     gateway.PatientsTable
	results      gateway.TestResultsTable
	appointments gateway.AppointmentsTable
	store        *state.Store
	logger       *zap.SugaredLogger
}

func NewService(gw *gateway.Gateway, store *state.Store, logger *zap.SugaredLogger) *Service {
	return NewServiceWithTables(gw.Patients, gw.TestResults, gw.Appointments, store, logger)
}

func NewServiceWithTables(p gateway.PatientsTable, r gateway.TestResultsTable, a gateway.AppointmentsTable, store *state.Store, logger *zap.SugaredLogger) *Service {
	return &Service{
		patients:     p,
		results:      r,
		appointments: a,
		store:        store,
		logger:       logger.With("userId", store.UserId()),
	}
}

func (s *Service) Store() *state.Store {
	return s.store
}

// Load replaces all three collections. The first failure is recorded in the store
// and the remaining collections are not fetched.
func (s *Service) Load(ctx context.Context) error {
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	patientList, err := s.patients.List(ctx)
	if err != nil {
		return s.loadFailed("patients", err)
	}
	s.store.SetPatients(patientList)

	resultList, err := s.results.List(ctx)
	if err != nil {
		return s.loadFailed("test results", err)
	}
	s.store.SetTestResults(resultList)

	appointmentList, err := s.appointments.List(ctx)
	if err != nil {
		return s.loadFailed("appointments", err)
	}
	appointments.Sort(appointmentList)
	s.store.SetAppointments(appointmentList)

	s.store.SetError("")
	s.logger.Debugw("workspace loaded", "patients", len(patientList), "results", len(resultList), "appointments", len(appointmentList))
	return nil
}

func (s *Service) loadFailed(collection string, err error) error {
	wrapped := fmt.Errorf("failed to load %s: %w", collection, err)
	s.store.SetError(wrapped.Error())
	s.logger.Warnw("unable to load workspace", "collection", collection, "error", err)
	return wrapped
}

func (s *Service) AddPatient(ctx context.Context, p patients.Patient) (*patients.Patient, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	created, err := s.patients.Insert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to add patient: %w", err)
	}

	s.store.PrependPatient(*created)
	return created, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id string, patch patients.Patch) (*patients.Patient, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.patients.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.store.ReplacePatient(*updated)
	return updated, nil
}

func (s *Service) DeletePatient(ctx context.Context, id string) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		if !errors.Is(err, errs.NotFound) {
			return fmt.Errorf("failed to delete patient: %w", err)
		}
		s.logger.Debugw("patient was already deleted", "patientId", id)
	}

	s.store.RemovePatient(id)
	return nil
}

func (s *Service) AddTestResult(ctx context.Context, r results.TestResult) (*results.TestResult, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	created, err := s.results.Insert(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to add test result: %w", err)
	}

	s.store.AppendTestResult(*created)
	s.refreshPatient(ctx, created.PatientId)
	return created, nil
}

// refreshPatient picks up counters the backend maintains for the patient.
func (s *Service) refreshPatient(ctx context.Context, id string) {
	patient, err := s.patients.Get(ctx, id)
	if err != nil {
		s.logger.Warnw("unable to refresh patient", "patientId", id, "error", err)
		return
	}
	s.store.ReplacePatient(*patient)
}

func (s *Service) AddAppointment(ctx context.Context, a appointments.Appointment) (*appointments.Appointment, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	created, err := s.appointments.Insert(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("failed to add appointment: %w", err)
	}

	s.store.AddAppointment(*created)
	return created, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, id string, patch appointments.Patch) (*appointments.Appointment, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	updated, err := s.appointments.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}

	s.store.ReplaceAppointment(*updated)
	return updated, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	if err := s.appointments.Delete(ctx, id); err != nil {
		if !errors.Is(err, errs.NotFound) {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		s.logger.Debugw("appointment was already deleted", "appointmentId", id)
	}

	s.store.RemoveAppointment(id)
	return nil
}

package state

import (
	"sync"

	"github.com/mohae/deepcopy"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/appointments"
	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/preferences"
	"github.com/perimetrix/fieldclinic/results"
)

type Listener func(State)

// Store is the observable state of one user's workspace. Mutations are applied in
// call order and every listener receives a copy of the state after each mutation.
type Store struct {
	mu        sync.Mutex
	state     State
	userId    string
	prefs     preferences.Store
	listeners map[int]Listener
	nextId    int
	logger    *zap.SugaredLogger
}

// New creates a store for the user and reads the persisted dashboard frequency once.
func New(userId string, prefs preferences.Store, logger *zap.SugaredLogger) *Store {
	frequency, err := prefs.DashboardFrequency(userId)
	if err != nil {
		logger.Warnw("unable to load dashboard frequency", "userId", userId, "error", err)
		frequency = preferences.DefaultFrequency
	}

	return &Store{
		state:     initialState(frequency),
		userId:    userId,
		prefs:     prefs,
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

func (s *Store) UserId() string {
	return s.userId
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return copyState(s.state)
}

// Subscribe registers fn for every subsequent change and returns a function removing it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextId
	s.nextId++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Update applies fn to the state and notifies listeners.
func (s *Store) Update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := copyState(s.state)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}

func (s *Store) SetPatients(list []patients.Patient) {
	s.Update(func(st *State) {
		st.Patients = nonNil(list)
	})
}

func (s *Store) PrependPatient(p patients.Patient) {
	s.Update(func(st *State) {
		st.Patients = append([]patients.Patient{p}, st.Patients...)
	})
}

func (s *Store) ReplacePatient(p patients.Patient) {
	s.Update(func(st *State) {
		for i := range st.Patients {
			if st.Patients[i].Id == p.Id {
				st.Patients[i] = p
			}
		}
		if st.CurrentPatient != nil && st.CurrentPatient.Id == p.Id {
			current := p
			st.CurrentPatient = &current
		}
	})
}

// RemovePatient drops the patient together with its test results and appointments.
func (s *Store) RemovePatient(id string) {
	s.Update(func(st *State) {
		st.Patients = removeById(st.Patients, id, func(p patients.Patient) string { return p.Id })
		st.TestResults = removeById(st.TestResults, id, func(r results.TestResult) string { return r.PatientId })
		st.Appointments = removeById(st.Appointments, id, func(a appointments.Appointment) string { return a.PatientId })
		if st.CurrentPatient != nil && st.CurrentPatient.Id == id {
			st.CurrentPatient = nil
		}
	})
}

func (s *Store) SetTestResults(list []results.TestResult) {
	s.Update(func(st *State) {
		st.TestResults = nonNil(list)
	})
}

func (s *Store) AppendTestResult(r results.TestResult) {
	s.Update(func(st *State) {
		st.TestResults = append(st.TestResults, r)
	})
}

func (s *Store) SetAppointments(list []appointments.Appointment) {
	s.Update(func(st *State) {
		st.Appointments = nonNil(list)
	})
}

// AddAppointment inserts a and keeps the list ordered by date and time.
func (s *Store) AddAppointment(a appointments.Appointment) {
	s.Update(func(st *State) {
		st.Appointments = append(st.Appointments, a)
		appointments.Sort(st.Appointments)
	})
}

func (s *Store) ReplaceAppointment(a appointments.Appointment) {
	s.Update(func(st *State) {
		for i := range st.Appointments {
			if st.Appointments[i].Id == a.Id {
				st.Appointments[i] = a
			}
		}
		appointments.Sort(st.Appointments)
	})
}

func (s *Store) RemoveAppointment(id string) {
	s.Update(func(st *State) {
		st.Appointments = removeById(st.Appointments, id, func(a appointments.Appointment) string { return a.Id })
	})
}

func (s *Store) SetCurrentPatient(p *patients.Patient) {
	s.Update(func(st *State) {
		st.CurrentPatient = p
	})
}

func (s *Store) SetCurrentTest(c *results.Configuration) {
	s.Update(func(st *State) {
		st.CurrentTest = c
	})
}

func (s *Store) SetTestInProgress(inProgress bool) {
	s.Update(func(st *State) {
		st.IsTestInProgress = inProgress
	})
}

func (s *Store) SetTestProgress(progress int) {
	s.Update(func(st *State) {
		st.TestProgress = max(0, min(100, progress))
	})
}

func (s *Store) SetLoading(loading bool) {
	s.Update(func(st *State) {
		st.Loading = loading
	})
}

func (s *Store) SetError(message string) {
	s.Update(func(st *State) {
		st.Error = message
	})
}

func (s *Store) SetCalibration(c Calibration) {
	s.Update(func(st *State) {
		st.Calibration = c
	})
}

func (s *Store) SetStreaming(streaming Streaming) {
	s.Update(func(st *State) {
		st.Streaming = streaming
	})
}

// SetDashboardFrequency persists the preference before it becomes visible in the state.
func (s *Store) SetDashboardFrequency(frequency preferences.Frequency) error {
	if !frequency.Valid() {
		return preferences.ErrInvalidFrequency
	}
	if err := s.prefs.SetDashboardFrequency(s.userId, frequency); err != nil {
		return err
	}

	s.Update(func(st *State) {
		st.DashboardFrequency = frequency
	})
	return nil
}

func copyState(st State) State {
	return deepcopy.Copy(st).(State)
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}

func removeById[T any](list []T, id string, key func(T) string) []T {
	filtered := make([]T, 0, len(list))
	for _, item := range list {
		if key(item) != id {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

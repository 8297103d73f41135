package testrun

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	errs "github.com/perimetrix/fieldclinic/errors"
	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/results"
	"github.com/perimetrix/fieldclinic/state"
)

const DefaultTickInterval = time.Second

var (
	ErrNoPatient       = fmt.Errorf("%w: select a patient before starting a test", errs.BadRequest)
	ErrNoConfiguration = fmt.Errorf("%w: configure the test before starting it", errs.BadRequest)
	ErrRunInProgress   = fmt.Errorf("%w: a test is already in progress", errs.Conflict)
)

// Persister stores the result of a finished run.
type Persister interface {
	AddTestResult(ctx context.Context, r results.TestResult) (*results.TestResult, error)
}

type Options struct {
	PersistCancelled  bool
	SaveRedirectDelay time.Duration
	TickInterval      time.Duration
}

type Status struct {
	Phase         Phase                  `json:"phase"`
	PatientId     string                 `json:"patientId,omitempty"`
	Configuration *results.Configuration `json:"configuration,omitempty"`
	Duration      int                    `json:"duration"`
	Remaining     int                    `json:"remaining"`
	Progress      int                    `json:"progress"`
	Quadrant      string                 `json:"quadrant"`
	ActiveCell    *Cell                  `json:"activeCell,omitempty"`
	SeenPoints    int                    `json:"seenPoints"`
	MissedPoints  int                    `json:"missedPoints"`
	Counters      Counters               `json:"counters"`
	Saving        bool                   `json:"saving"`
	NavigateAway  bool                   `json:"navigateAway"`
	Result        *results.TestResult    `json:"result,omitempty"`
	Failure       FailureKind            `json:"failure,omitempty"`
	Notifications []Notification         `json:"notifications"`
}

// Runner drives the test run of one workspace from its clock.
type Runner struct {
	mu            sync.Mutex
	store         *state.Store
	persister     Persister
	sim           Simulator
	clock         Clock
	opts          Options
	logger        *zap.SugaredLogger
	notifications *Notifications

	session      Session
	patient      *patients.Patient
	ctx          context.Context
	stopTicker   func()
	stopRedirect func()
	saving       bool
	navigateAway bool
	result       *results.TestResult
	failure      FailureKind
	closed       bool
}

func NewRunner(store *state.Store, persister Persister, sim Simulator, clock Clock, opts Options, logger *zap.SugaredLogger) *Runner {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	return &Runner{
		store:         store,
		persister:     persister,
		sim:           sim,
		clock:         clock,
		opts:          opts,
		logger:        logger,
		notifications: NewNotifications(clock.Now),
		session:       NewSession(results.Configuration{}),
		stopTicker:    func() {},
		stopRedirect:  func() {},
	}
}

// Setup selects the patient and configuration of the next run.
func (r *Runner) Setup(patient patients.Patient, config results.Configuration) error {
	if err := config.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.session.Phase.Settled() {
		return ErrRunInProgress
	}
	r.reset()
	r.session = NewSession(config)
	r.store.SetCurrentPatient(&patient)
	r.store.SetCurrentTest(&config)
	return nil
}

func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.session.Phase.Settled() {
		return ErrRunInProgress
	}

	snapshot := r.store.Snapshot()
	if snapshot.CurrentPatient == nil {
		return ErrNoPatient
	}
	if snapshot.CurrentTest == nil {
		return ErrNoConfiguration
	}

	session, err := Start(NewSession(*snapshot.CurrentTest))
	if err != nil {
		return err
	}

	r.reset()
	r.session = session
	r.patient = snapshot.CurrentPatient
	// the run outlives the request that started it
	r.ctx = context.WithoutCancel(ctx)

	r.store.SetTestProgress(0)
	r.store.SetTestInProgress(true)
	r.notifications.Push(NotificationInfo, fmt.Sprintf("%s test started for %s", session.Config.TestType, r.patient.FullName()))
	r.logger.Infow("test run started", "patientId", r.patient.Id, "testType", session.Config.TestType, "eye", session.Config.Eye, "duration", session.Duration)

	r.stopTicker = r.clock.Every(r.opts.TickInterval, func(time.Time) {
		r.Tick(1)
	})
	return nil
}

func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := Pause(r.session)
	if err != nil {
		return err
	}
	r.session = session
	r.notifications.Push(NotificationInfo, "Test paused")
	return nil
}

func (r *Runner) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, err := Resume(r.session)
	if err != nil {
		return err
	}
	r.session = session
	r.notifications.Push(NotificationInfo, "Test resumed")
	return nil
}

// Stop ends the run early. Stopping a completed run does nothing.
func (r *Runner) Stop() error {
	r.mu.Lock()
	session, stopped, err := Stop(r.session)
	if err != nil || !stopped {
		r.mu.Unlock()
		return err
	}
	r.session = session
	r.stopTicker()
	r.store.SetTestInProgress(false)
	r.notifications.Push(NotificationWarning, "Test stopped")
	r.logger.Infow("test run stopped", "patientId", r.patient.Id, "elapsed", session.Elapsed())
	persist := r.opts.PersistCancelled
	r.mu.Unlock()

	if persist {
		r.persist(results.StatusCancelled)
	}
	return nil
}

// Tick applies elapsed seconds to a running session.
func (r *Runner) Tick(elapsed int) {
	r.mu.Lock()
	if r.closed || r.session.Phase != PhaseRunning {
		r.mu.Unlock()
		return
	}

	r.session = Advance(r.session, elapsed, r.sim)
	r.store.SetTestProgress(r.session.Progress)

	completed := false
	for _, e := range r.session.Events {
		switch e.Kind {
		case EventWarning:
			r.notifications.Push(NotificationWarning, e.Message)
		case EventCompleted:
			completed = true
			r.notifications.Push(NotificationSuccess, e.Message)
		}
	}
	if completed {
		r.stopTicker()
		r.store.SetTestInProgress(false)
		r.logger.Infow("test run completed", "patientId", r.patient.Id)
	}
	r.mu.Unlock()

	if completed {
		r.persist(results.StatusCompleted)
	}
}

func (r *Runner) persist(status results.Status) {
	r.mu.Lock()
	if err := transition(r.session.Phase, PhaseSaving); err != nil {
		r.mu.Unlock()
		r.logger.Errorw("unable to save test run", "error", err)
		return
	}
	r.session.Phase = PhaseSaving
	r.saving = true
	result := Synthesize(r.session, r.patient.Id, r.sim, r.clock.Now(), status)
	ctx := r.ctx
	r.mu.Unlock()

	created, err := r.persister.AddTestResult(ctx, result)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.saving = false
	r.session.Phase = PhaseSaved
	if err != nil {
		r.failure = ClassifyFailure(err)
		r.notifications.Push(NotificationWarning, r.failure.Message())
		r.logger.Warnw("unable to save test result", "patientId", r.patient.Id, "failure", r.failure, "error", err)
		return
	}

	r.result = created
	r.notifications.Push(NotificationSuccess, "Test results saved")
	r.logger.Infow("test result saved", "patientId", r.patient.Id, "resultId", created.Id, "status", created.Status)
	if !r.closed {
		r.stopRedirect = r.clock.AfterFunc(r.opts.SaveRedirectDelay, r.navigate)
	}
}

func (r *Runner) navigate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.navigateAway = true
	r.store.SetCurrentTest(nil)
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	status := Status{
		Phase:         s.Phase,
		Duration:      s.Duration,
		Remaining:     s.Remaining,
		Progress:      s.Progress,
		Quadrant:      s.QuadrantLabel(),
		SeenPoints:    s.Seen.Cardinality(),
		MissedPoints:  s.Missed.Cardinality(),
		Counters:      s.Counters,
		Saving:        r.saving,
		NavigateAway:  r.navigateAway,
		Result:        r.result,
		Failure:       r.failure,
		Notifications: r.notifications.Visible(),
	}
	if s.Config.TestType != "" {
		config := s.Config
		status.Configuration = &config
	}
	if s.Active != nil {
		active := *s.Active
		status.ActiveCell = &active
	}
	if r.patient != nil {
		status.PatientId = r.patient.Id
	}
	return status
}

// Close stops the ticker and any pending redirect. A save in flight still completes.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.stopTicker()
	r.stopRedirect()
}

func (r *Runner) reset() {
	r.stopTicker()
	r.stopRedirect()
	r.stopTicker = func() {}
	r.stopRedirect = func() {}
	r.saving = false
	r.navigateAway = false
	r.result = nil
	r.failure = ""
}

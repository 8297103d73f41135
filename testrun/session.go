package testrun

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/perimetrix/fieldclinic/results"
)

const (
	GridSize                    = 8
	StimulusProbability         = 0.3
	ReliabilityEventProbability = 0.05
	ReliabilityCounterCap       = 10
)

var (
	QuadrantLabels = [4]string{"Superior Temporal", "Superior Nasal", "Inferior Nasal", "Inferior Temporal"}
	warningAt      = map[int]string{
		60: "1 minute remaining",
		30: "30 seconds remaining",
	}
)

type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type Counter int

const (
	CounterFalsePositives Counter = iota
	CounterFalseNegatives
	CounterFixationLosses
)

type Counters struct {
	FalsePositives int `json:"falsePositives"`
	FalseNegatives int `json:"falseNegatives"`
	FixationLosses int `json:"fixationLosses"`
}

func (c Counters) increment(counter Counter) Counters {
	switch counter {
	case CounterFalsePositives:
		c.FalsePositives = min(ReliabilityCounterCap, c.FalsePositives+1)
	case CounterFalseNegatives:
		c.FalseNegatives = min(ReliabilityCounterCap, c.FalseNegatives+1)
	case CounterFixationLosses:
		c.FixationLosses = min(ReliabilityCounterCap, c.FixationLosses+1)
	}
	return c
}

type EventKind string

const (
	EventWarning   EventKind = "warning"
	EventCompleted EventKind = "completed"
)

type Event struct {
	Kind      EventKind
	Message   string
	Remaining int
}

// Session is the state of a single run. Advance never mutates its input.
type Session struct {
	Phase     Phase
	Config    results.Configuration
	Duration  int
	Remaining int
	Progress  int
	Quadrant  int
	Active    *Cell
	Seen      mapset.Set[Cell]
	Missed    mapset.Set[Cell]
	Counters  Counters
	// Latched is set on the first completion or stop and never cleared.
	Latched bool
	// Events raised by the most recent Advance call.
	Events []Event
}

func NewSession(config results.Configuration) Session {
	return Session{
		Phase:     PhaseIdle,
		Config:    config,
		Duration:  config.Duration,
		Remaining: config.Duration,
		Seen:      mapset.NewThreadUnsafeSet[Cell](),
		Missed:    mapset.NewThreadUnsafeSet[Cell](),
	}
}

func (s Session) clone() Session {
	c := s
	c.Seen = s.Seen.Clone()
	c.Missed = s.Missed.Clone()
	if s.Active != nil {
		active := *s.Active
		c.Active = &active
	}
	c.Events = nil
	return c
}

func (s Session) QuadrantLabel() string {
	return QuadrantLabels[s.Quadrant%len(QuadrantLabels)]
}

func (s Session) Tested() mapset.Set[Cell] {
	return s.Seen.Union(s.Missed)
}

func (s Session) Untested() []Cell {
	tested := s.Tested()
	untested := make([]Cell, 0, GridSize*GridSize-tested.Cardinality())
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			cell := Cell{Row: row, Col: col}
			if !tested.Contains(cell) {
				untested = append(untested, cell)
			}
		}
	}
	return untested
}

func (s Session) Elapsed() int {
	return s.Duration - s.Remaining
}

func Start(s Session) (Session, error) {
	if err := transition(s.Phase, PhaseRunning); err != nil {
		return s, err
	}
	next := NewSession(s.Config)
	next.Phase = PhaseRunning
	return next, nil
}

func Pause(s Session) (Session, error) {
	if err := transition(s.Phase, PhasePaused); err != nil {
		return s, err
	}
	next := s.clone()
	next.Phase = PhasePaused
	return next, nil
}

func Resume(s Session) (Session, error) {
	if err := transition(s.Phase, PhaseRunning); err != nil {
		return s, err
	}
	next := s.clone()
	next.Phase = PhaseRunning
	return next, nil
}

// Stop ends the run early. A latched session is returned unchanged.
func Stop(s Session) (Session, bool, error) {
	if s.Latched {
		return s, false, nil
	}
	if err := transition(s.Phase, PhaseStopped); err != nil {
		return s, false, err
	}
	next := s.clone()
	next.Phase = PhaseStopped
	next.Active = nil
	next.Latched = true
	return next, true, nil
}

// Advance applies elapsed one second ticks. Ticks only apply while running and not latched.
func Advance(s Session, elapsed int, sim Simulator) Session {
	next := s.clone()
	for i := 0; i < elapsed; i++ {
		if next.Phase != PhaseRunning || next.Latched || next.Remaining <= 0 {
			break
		}
		next = tick(next, sim)
	}
	return next
}

func tick(s Session, sim Simulator) Session {
	s.Remaining--
	s.Progress = Progress(s.Duration, s.Remaining)

	if s.Active != nil {
		if sim.Respond(*s.Active) {
			s.Seen.Add(*s.Active)
		} else {
			s.Missed.Add(*s.Active)
		}
		s.Active = nil
	}

	if s.Remaining > 0 {
		if cell, ok := sim.Stimulus(s.Untested()); ok {
			s.Active = &cell
		}
	}

	if counter, ok := sim.ReliabilityEvent(); ok {
		s.Counters = s.Counters.increment(counter)
	}

	s.Quadrant = quadrant(s.Duration, s.Remaining)

	if message, ok := warningAt[s.Remaining]; ok {
		s.Events = append(s.Events, Event{Kind: EventWarning, Message: message, Remaining: s.Remaining})
	}

	if s.Remaining == 0 {
		s.Phase = PhaseCompleted
		s.Latched = true
		s.Events = append(s.Events, Event{Kind: EventCompleted, Message: "Test completed"})
	}
	return s
}

// Progress is the elapsed share of the duration in percent. It only reads 100 once nothing remains.
func Progress(duration, remaining int) int {
	if duration <= 0 || remaining <= 0 {
		return 100
	}
	progress := int(math.Round(float64(duration-remaining) / float64(duration) * 100))
	return max(0, min(99, progress))
}

// quadrant steps through the four labels at quarter duration boundaries.
func quadrant(duration, remaining int) int {
	if duration <= 0 {
		return 0
	}
	return min(len(QuadrantLabels)-1, (duration-remaining)*len(QuadrantLabels)/duration)
}

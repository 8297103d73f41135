package testrun

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"

	errs "github.com/perimetrix/fieldclinic/errors"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhasePaused    Phase = "paused"
	PhaseCompleted Phase = "completed"
	PhaseSaving    Phase = "saving"
	PhaseSaved     Phase = "saved"
	PhaseStopped   Phase = "stopped"
)

var ErrInvalidTransition = fmt.Errorf("%w: invalid test run transition", errs.Conflict)

var lifecycle = newLifecycle()

func newLifecycle() graph.Graph[Phase, Phase] {
	g := graph.New(func(p Phase) Phase { return p }, graph.Directed())
	for _, p := range []Phase{PhaseIdle, PhaseRunning, PhasePaused, PhaseCompleted, PhaseSaving, PhaseSaved, PhaseStopped} {
		if err := g.AddVertex(p); err != nil {
			panic(err)
		}
	}

	edges := [][2]Phase{
		{PhaseIdle, PhaseRunning},
		{PhaseRunning, PhasePaused},
		{PhasePaused, PhaseRunning},
		{PhaseRunning, PhaseCompleted},
		{PhaseRunning, PhaseStopped},
		{PhasePaused, PhaseStopped},
		{PhaseCompleted, PhaseSaving},
		// only when cancelled runs are persisted
		{PhaseStopped, PhaseSaving},
		{PhaseSaving, PhaseSaved},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			panic(err)
		}
	}
	return g
}

func CanTransition(from, to Phase) bool {
	_, err := lifecycle.Edge(from, to)
	return err == nil
}

func transition(from, to Phase) error {
	if _, err := lifecycle.Edge(from, to); err != nil {
		if errors.Is(err, graph.ErrEdgeNotFound) || errors.Is(err, graph.ErrVertexNotFound) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
		}
		return err
	}
	return nil
}

// Settled phases accept a new setup and a fresh start.
func (p Phase) Settled() bool {
	return p == PhaseIdle || p == PhaseSaved || p == PhaseStopped
}

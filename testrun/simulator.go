package testrun

import (
	"math/rand"
	"sync"

	"github.com/perimetrix/fieldclinic/results"
)

// Simulator produces the patient responses and measurements of a run. RandomSimulator
// stands in for a perimeter; a device integration implements the same methods.
type Simulator interface {
	// Stimulus picks the cell to present on this tick, if any.
	Stimulus(untested []Cell) (Cell, bool)
	// Respond reports whether the patient saw the stimulus at cell.
	Respond(cell Cell) bool
	// ReliabilityEvent reports a catch trial failure on this tick, if any.
	ReliabilityEvent() (Counter, bool)
	// Measure derives the reliability, indices and sensitivity grid of one eye.
	Measure(eye results.Eye, s Session) results.EyeData
}

// RandomSimulator draws every outcome from a seeded source. It is safe for concurrent use.
type RandomSimulator struct {
	mu  sync.Mutex
	rnd *rand.Rand

	stimulusProbability    float64
	reliabilityProbability float64
	seenProbability        float64
}

func NewRandomSimulator(seed int64) *RandomSimulator {
	return &RandomSimulator{
		rnd:                    rand.New(rand.NewSource(seed)),
		stimulusProbability:    StimulusProbability,
		reliabilityProbability: ReliabilityEventProbability,
		seenProbability:        0.85,
	}
}

func (r *RandomSimulator) Stimulus(untested []Cell) (Cell, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(untested) == 0 || r.rnd.Float64() >= r.stimulusProbability {
		return Cell{}, false
	}
	return untested[r.rnd.Intn(len(untested))], true
}

func (r *RandomSimulator) Respond(Cell) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rnd.Float64() < r.seenProbability
}

func (r *RandomSimulator) ReliabilityEvent() (Counter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rnd.Float64() >= r.reliabilityProbability {
		return 0, false
	}
	return Counter(r.rnd.Intn(3)), true
}

func (r *RandomSimulator) Measure(eye results.Eye, s Session) results.EyeData {
	r.mu.Lock()
	defer r.mu.Unlock()

	// per eye offset keeps both eyes of a run close to each other
	offset := 0.0
	if eye == results.EyeLeft {
		offset = r.rnd.Float64()*0.6 - 0.3
	}

	return results.EyeData{
		Reliability: r.reliability(s.Counters),
		Indices:     r.indices(offset),
		Data:        r.grid(s, offset),
	}
}

func (r *RandomSimulator) reliability(c Counters) results.Reliability {
	jitter := func(v int) int {
		return results.ClampPercent(v + r.rnd.Intn(3) - 1)
	}
	fp, fn, fl := jitter(c.FalsePositives), jitter(c.FalseNegatives), jitter(c.FixationLosses)
	score := 100 - (fp+fn+fl)/2 - r.rnd.Intn(5)
	return results.Reliability{
		FalsePositives: fp,
		FalseNegatives: fn,
		FixationLosses: fl,
		Score:          results.ClampPercent(max(85, score)),
	}
}

var hemifieldLabels = []results.GHT{results.GHTWithinNormalLimits, results.GHTBorderline, results.GHTOutsideNormalLimits}

func (r *RandomSimulator) indices(offset float64) results.Indices {
	md := -5 + r.rnd.Float64()*6 + offset
	psd := 1 + r.rnd.Float64()*4 + offset/2
	return results.Indices{
		MD:  results.RoundTo(min(1, max(-5, md)), 1),
		PSD: results.RoundTo(max(1, psd), 1),
		VFI: 70 + r.rnd.Intn(31),
		GHT: hemifieldLabels[r.rnd.Intn(len(hemifieldLabels))],
	}
}

// grid maps the tested cells to sensitivities in dB: seen points read high, missed
// points read low and untested points are interpolated around the normal range.
func (r *RandomSimulator) grid(s Session, offset float64) results.Grid {
	grid := make(results.Grid, GridSize)
	for row := range grid {
		grid[row] = make([]float64, GridSize)
		for col := range grid[row] {
			cell := Cell{Row: row, Col: col}
			var value float64
			switch {
			case s.Seen.Contains(cell):
				value = 25 + r.rnd.Float64()*10
			case s.Missed.Contains(cell):
				value = r.rnd.Float64() * 10
			default:
				value = 15 + r.rnd.Float64()*15
			}
			grid[row][col] = results.RoundTo(max(0, value+offset), 1)
		}
	}
	return grid
}

package testrun

import (
	"math"
	"time"

	"github.com/perimetrix/fieldclinic/results"
)

// Synthesize builds the result record of a finished session. A both eyes run measures
// each eye separately and reports the average of the two at the top level.
func Synthesize(s Session, patientId string, sim Simulator, now time.Time, status results.Status) results.TestResult {
	parameters, _, err := s.Config.MergedParameters()
	if err != nil {
		parameters = s.Config.AdvancedParameters
	}

	result := results.TestResult{
		PatientId:          patientId,
		TestType:           s.Config.TestType,
		Strategy:           s.Config.Strategy,
		Eye:                s.Config.Eye,
		Date:               now.UTC().Format(time.DateOnly),
		Duration:           s.Elapsed(),
		Status:             status,
		AdvancedParameters: parameters,
	}

	if s.Config.Eye != results.EyeBoth {
		measured := sim.Measure(s.Config.Eye, s)
		result.Reliability = measured.Reliability
		result.Indices = measured.Indices
		result.Data = measured.Data
		return result
	}

	right := sim.Measure(results.EyeRight, s)
	left := sim.Measure(results.EyeLeft, s)
	result.RightEyeData = &right
	result.LeftEyeData = &left
	result.Reliability = CombineReliability(right.Reliability, left.Reliability)
	result.Indices = CombineIndices(right.Indices, left.Indices)
	result.Data = CombineGrids(right.Data, left.Data)
	return result
}

func averageInt(a, b int) int {
	return int(math.Round(float64(a+b) / 2))
}

func averageFloat(a, b float64) float64 {
	return results.RoundTo((a+b)/2, 1)
}

func CombineReliability(right, left results.Reliability) results.Reliability {
	return results.Reliability{
		FalsePositives: averageInt(right.FalsePositives, left.FalsePositives),
		FalseNegatives: averageInt(right.FalseNegatives, left.FalseNegatives),
		FixationLosses: averageInt(right.FixationLosses, left.FixationLosses),
		Score:          averageInt(right.Score, left.Score),
	}
}

// CombineIndices averages the numeric indices and keeps the more severe hemifield label.
func CombineIndices(right, left results.Indices) results.Indices {
	return results.Indices{
		MD:  averageFloat(right.MD, left.MD),
		PSD: averageFloat(right.PSD, left.PSD),
		VFI: averageInt(right.VFI, left.VFI),
		GHT: right.GHT.Worse(left.GHT),
	}
}

func CombineGrids(right, left results.Grid) results.Grid {
	combined := make(results.Grid, len(right))
	for row := range right {
		combined[row] = make([]float64, len(right[row]))
		for col := range right[row] {
			combined[row][col] = averageFloat(right[row][col], left[row][col])
		}
	}
	return combined
}

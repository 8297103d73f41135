package test

import (
	"time"

	"github.com/perimetrix/fieldclinic/results"
	"github.com/perimetrix/fieldclinic/test"
)

func RandomGrid(rows, cols int) results.Grid {
	grid := make(results.Grid, rows)
	for r := range grid {
		grid[r] = make([]float64, cols)
		for c := range grid[r] {
			grid[r][c] = results.RoundTo(test.Rand.Float64()*35, 1)
		}
	}
	return grid
}

func RandomReliability() results.Reliability {
	return results.Reliability{
		FalsePositives: test.Faker.IntBetween(0, 10),
		FalseNegatives: test.Faker.IntBetween(0, 10),
		FixationLosses: test.Faker.IntBetween(0, 10),
		Score:          test.Faker.IntBetween(85, 100),
	}
}

func RandomIndices() results.Indices {
	ght := []results.GHT{results.GHTWithinNormalLimits, results.GHTBorderline, results.GHTOutsideNormalLimits}
	return results.Indices{
		MD:  results.RoundTo(-5+test.Rand.Float64()*6, 1),
		PSD: results.RoundTo(1+test.Rand.Float64()*4, 1),
		VFI: test.Faker.IntBetween(70, 100),
		GHT: ght[test.Rand.Intn(len(ght))],
	}
}

func RandomTestResult(patientId string) results.TestResult {
	return results.TestResult{
		PatientId:   patientId,
		TestType:    results.TestType242,
		Strategy:    "SITA Standard",
		Eye:         results.EyeRight,
		Date:        time.Now().UTC().Format(time.DateOnly),
		Duration:    test.Faker.IntBetween(120, 600),
		Reliability: RandomReliability(),
		Indices:     RandomIndices(),
		Data:        RandomGrid(8, 8),
		Notes:       test.Faker.Lorem().Sentence(6),
		Status:      results.StatusCompleted,
	}
}

func RandomBothEyesResult(patientId string) results.TestResult {
	result := RandomTestResult(patientId)
	result.Eye = results.EyeBoth
	result.RightEyeData = &results.EyeData{
		Reliability: RandomReliability(),
		Indices:     RandomIndices(),
		Data:        RandomGrid(8, 8),
	}
	result.LeftEyeData = &results.EyeData{
		Reliability: RandomReliability(),
		Indices:     RandomIndices(),
		Data:        RandomGrid(8, 8),
	}
	result.AdvancedParameters = map[string]any{
		"backgroundLuminance": 31.5,
		"stimulusDuration":    200,
	}
	return result
}

package results

import (
	"fmt"
	"math"

	errs "github.com/perimetrix/fieldclinic/errors"
)

const Table = "test_results"

type TestType string

const (
	TestType242    TestType = "24-2"
	TestType302    TestType = "30-2"
	TestType102    TestType = "10-2"
	TestTypeCustom TestType = "Custom"
)

func (t TestType) Valid() bool {
	switch t {
	case TestType242, TestType302, TestType102, TestTypeCustom:
		return true
	}
	return false
}

type Eye string

const (
	EyeRight Eye = "OD"
	EyeLeft  Eye = "OS"
	EyeBoth  Eye = "OU"
)

func (e Eye) Valid() bool {
	return e == EyeRight || e == EyeLeft || e == EyeBoth
}

type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in-progress"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	return s == StatusCompleted || s == StatusInProgress || s == StatusCancelled
}

// GHT is the glaucoma hemifield test outcome.
type GHT string

const (
	GHTWithinNormalLimits  GHT = "Within Normal Limits"
	GHTBorderline          GHT = "Borderline"
	GHTOutsideNormalLimits GHT = "Outside Normal Limits"
)

var ghtSeverity = map[GHT]int{
	GHTWithinNormalLimits:  0,
	GHTBorderline:          1,
	GHTOutsideNormalLimits: 2,
}

func (g GHT) Valid() bool {
	_, ok := ghtSeverity[g]
	return ok
}

// Worse returns the more severe of the two labels.
func (g GHT) Worse(other GHT) GHT {
	if ghtSeverity[other] > ghtSeverity[g] {
		return other
	}
	return g
}

// Reliability values are percentages.
type Reliability struct {
	FalsePositives int `json:"falsePositives" bson:"false_positives"`
	FalseNegatives int `json:"falseNegatives" bson:"false_negatives"`
	FixationLosses int `json:"fixationLosses" bson:"fixation_losses"`
	Score          int `json:"score" bson:"score"`
}

func (r Reliability) Clamp() Reliability {
	return Reliability{
		FalsePositives: ClampPercent(r.FalsePositives),
		FalseNegatives: ClampPercent(r.FalseNegatives),
		FixationLosses: ClampPercent(r.FixationLosses),
		Score:          ClampPercent(r.Score),
	}
}

type Indices struct {
	MD  float64 `json:"md" bson:"md"`
	PSD float64 `json:"psd" bson:"psd"`
	VFI int     `json:"vfi" bson:"vfi"`
	GHT GHT     `json:"ght" bson:"ght"`
}

// Grid holds sensitivity values in dB, row-major.
type Grid [][]float64

// Shape returns rows and columns, or ok=false when rows differ in length.
func (g Grid) Shape() (rows int, cols int, ok bool) {
	rows = len(g)
	if rows == 0 {
		return 0, 0, true
	}
	cols = len(g[0])
	for _, row := range g[1:] {
		if len(row) != cols {
			return rows, cols, false
		}
	}
	return rows, cols, true
}

type EyeData struct {
	Reliability Reliability `json:"reliability" bson:"reliability"`
	Indices     Indices     `json:"indices" bson:"indices"`
	Data        Grid        `json:"data" bson:"data"`
}

type TestResult struct {
	Id                 string         `json:"id,omitempty"`
	PatientId          string         `json:"patientId"`
	TestType           TestType       `json:"testType"`
	Strategy           string         `json:"strategy"`
	Eye                Eye            `json:"eye"`
	Date               string         `json:"date"`
	Duration           int            `json:"duration"`
	Reliability        Reliability    `json:"reliability"`
	Indices            Indices        `json:"indices"`
	Data               Grid           `json:"data"`
	Notes              string         `json:"notes"`
	Status             Status         `json:"status"`
	CreatedAt          *string        `json:"createdAt,omitempty"`
	AdvancedParameters map[string]any `json:"advancedParameters,omitempty"`
	RightEyeData       *EyeData       `json:"rightEyeData,omitempty"`
	LeftEyeData        *EyeData       `json:"leftEyeData,omitempty"`
}

type Patch struct {
	Notes *string `json:"notes,omitempty" bson:"notes,omitempty"`
}

func (t TestResult) Validate() error {
	v := &errs.ValidationError{}
	if t.PatientId == "" {
		v.Add("patientId", "is required")
	}
	if !t.TestType.Valid() {
		v.Add("testType", "must be one of 24-2, 30-2, 10-2, Custom")
	}
	if !t.Eye.Valid() {
		v.Add("eye", "must be one of OD, OS, OU")
	}
	if t.Status != "" && !t.Status.Valid() {
		v.Add("status", "must be one of completed, in-progress, cancelled")
	}
	if t.Duration < 0 {
		v.Add("duration", "cannot be negative")
	}
	if t.Indices.GHT != "" && !t.Indices.GHT.Valid() {
		v.Add("indices.ght", "is not a recognized hemifield label")
	}
	validateGrids(v, t)
	return v.Err()
}

// validateGrids checks every grid of the record describes the same point layout.
func validateGrids(v *errs.ValidationError, t TestResult) {
	rows, cols, ok := t.Data.Shape()
	if !ok {
		v.Add("data", "rows must all have the same number of columns")
		return
	}
	for field, eye := range map[string]*EyeData{"rightEyeData": t.RightEyeData, "leftEyeData": t.LeftEyeData} {
		if eye == nil {
			continue
		}
		r, c, ok := eye.Data.Shape()
		if !ok {
			v.Add(field+".data", "rows must all have the same number of columns")
			continue
		}
		if r != rows || c != cols {
			v.Add(field+".data", fmt.Sprintf("shape %dx%d does not match %dx%d", r, c, rows, cols))
		}
	}
}

// Normalize clamps reliability percentages, including per-eye records.
func (t TestResult) Normalize() TestResult {
	t.Reliability = t.Reliability.Clamp()
	if t.RightEyeData != nil {
		right := *t.RightEyeData
		right.Reliability = right.Reliability.Clamp()
		t.RightEyeData = &right
	}
	if t.LeftEyeData != nil {
		left := *t.LeftEyeData
		left.Reliability = left.Reliability.Clamp()
		t.LeftEyeData = &left
	}
	if t.Status == "" {
		t.Status = StatusCompleted
	}
	return t
}

func ClampPercent(v int) int {
	return max(0, min(100, v))
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

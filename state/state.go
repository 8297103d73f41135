package state

import (
	"time"

	"github.com/perimetrix/fieldclinic/appointments"
	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/preferences"
	"github.com/perimetrix/fieldclinic/results"
)

// Calibration is reserved for display calibration. The test flow does not read it.
type Calibration struct {
	Completed    bool       `json:"completed"`
	CalibratedAt *time.Time `json:"calibratedAt,omitempty"`
}

// Streaming is reserved for live result streaming. The test flow does not read it.
type Streaming struct {
	Enabled bool `json:"enabled"`
}

type State struct {
	Patients           []patients.Patient         `json:"patients"`
	TestResults        []results.TestResult       `json:"testResults"`
	Appointments       []appointments.Appointment `json:"appointments"`
	CurrentPatient     *patients.Patient          `json:"currentPatient,omitempty"`
	CurrentTest        *results.Configuration     `json:"currentTest,omitempty"`
	IsTestInProgress   bool                       `json:"isTestInProgress"`
	TestProgress       int                        `json:"testProgress"`
	Loading            bool                       `json:"loading"`
	Error              string                     `json:"error,omitempty"`
	DashboardFrequency preferences.Frequency      `json:"dashboardFrequency"`
	Calibration        Calibration                `json:"calibration"`
	Streaming          Streaming                  `json:"streaming"`
}

func initialState(frequency preferences.Frequency) State {
	return State{
		Patients:           []patients.Patient{},
		TestResults:        []results.TestResult{},
		Appointments:       []appointments.Appointment{},
		DashboardFrequency: frequency,
	}
}

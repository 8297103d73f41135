package results

import (
	"fmt"

	"github.com/tealeg/xlsx/v3"
)

const (
	ExportSheetNameSummary = "Summary"
	ExportContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportSummaryHeader = []string{
	"Result", "Patient", "Date", "Test Type", "Strategy", "Eye", "Status", "Duration (s)",
	"False Positives (%)", "False Negatives (%)", "Fixation Losses (%)", "Reliability Score",
	"MD (dB)", "PSD (dB)", "VFI (%)", "GHT", "Notes",
}

// Export writes the results to a workbook with a summary sheet followed by one sheet
// per sensitivity grid. patientNames maps patient ids to display names.
func Export(list []TestResult, patientNames map[string]string) (*xlsx.File, error) {
	workbook := xlsx.NewFile()

	summary, err := workbook.AddSheet(ExportSheetNameSummary)
	if err != nil {
		return nil, err
	}
	addRow(summary, exportSummaryHeader...)

	for i, r := range list {
		label := fmt.Sprintf("%d", i+1)
		name := patientNames[r.PatientId]
		if name == "" {
			name = r.PatientId
		}

		row := summary.AddRow()
		row.AddCell().SetString(label)
		row.AddCell().SetString(name)
		row.AddCell().SetString(r.Date)
		row.AddCell().SetString(string(r.TestType))
		row.AddCell().SetString(r.Strategy)
		row.AddCell().SetString(string(r.Eye))
		row.AddCell().SetString(string(r.Status))
		row.AddCell().SetInt(r.Duration)
		row.AddCell().SetInt(r.Reliability.FalsePositives)
		row.AddCell().SetInt(r.Reliability.FalseNegatives)
		row.AddCell().SetInt(r.Reliability.FixationLosses)
		row.AddCell().SetInt(r.Reliability.Score)
		row.AddCell().SetFloat(r.Indices.MD)
		row.AddCell().SetFloat(r.Indices.PSD)
		row.AddCell().SetInt(r.Indices.VFI)
		row.AddCell().SetString(string(r.Indices.GHT))
		row.AddCell().SetString(r.Notes)

		if err := addGridSheet(workbook, fmt.Sprintf("%s %s", label, r.Eye), r.Data); err != nil {
			return nil, err
		}
		if r.RightEyeData != nil {
			if err := addGridSheet(workbook, fmt.Sprintf("%s %s", label, EyeRight), r.RightEyeData.Data); err != nil {
				return nil, err
			}
		}
		if r.LeftEyeData != nil {
			if err := addGridSheet(workbook, fmt.Sprintf("%s %s", label, EyeLeft), r.LeftEyeData.Data); err != nil {
				return nil, err
			}
		}
	}

	return workbook, nil
}

func addGridSheet(workbook *xlsx.File, name string, grid Grid) error {
	sh, err := workbook.AddSheet(name)
	if err != nil {
		return fmt.Errorf("unable to add sheet %q: %w", name, err)
	}
	for _, values := range grid {
		row := sh.AddRow()
		for _, v := range values {
			row.AddCell().SetFloat(v)
		}
	}
	return nil
}

func addRow(sh *xlsx.Sheet, values ...string) {
	row := sh.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

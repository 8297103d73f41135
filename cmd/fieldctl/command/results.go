package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/gateway"
	"github.com/perimetrix/fieldclinic/results"
)

var resultsExportParams = struct {
	Output    string
	PatientId string
}{}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage test results",
}

var resultsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export test results to a workbook",
	Long:  "The export command writes the clinician's test results to an xlsx workbook",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(exportResults) },
}

func exportResults(gw *gateway.Gateway, logger *zap.SugaredLogger) error {
	ctx, err := signIn(gw)
	if err != nil {
		return err
	}

	patientList, err := gw.Patients.List(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(patientList))
	for _, p := range patientList {
		names[p.Id] = p.FullName()
	}

	resultList, err := gw.TestResults.List(ctx)
	if err != nil {
		return err
	}
	if resultsExportParams.PatientId != "" {
		filtered := make([]results.TestResult, 0, len(resultList))
		for _, r := range resultList {
			if r.PatientId == resultsExportParams.PatientId {
				filtered = append(filtered, r)
			}
		}
		resultList = filtered
	}

	workbook, err := results.Export(resultList, names)
	if err != nil {
		return err
	}
	if err := workbook.Save(resultsExportParams.Output); err != nil {
		return err
	}

	logger.Infow("exported test results", "count", len(resultList), "output", resultsExportParams.Output)
	fmt.Printf("Exported %v results to %s\n", len(resultList), resultsExportParams.Output)
	return nil
}

func init() {
	addCredentialFlags(resultsExportCmd)
	resultsExportCmd.Flags().StringVarP(&resultsExportParams.Output, "output", "o", "test-results.xlsx", "Output file")
	resultsExportCmd.Flags().StringVar(&resultsExportParams.PatientId, "patient-id", "", "Only export results of this patient")

	resultsCmd.AddCommand(resultsExportCmd)
	rootCmd.AddCommand(resultsCmd)
}

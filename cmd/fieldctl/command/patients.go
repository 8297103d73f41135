package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perimetrix/fieldclinic/gateway"
)

var patientsCmd = &cobra.Command{
	Use:   "patients",
	Short: "Manage patients",
	Long:  "The patients command is used to inspect the patients of a clinician",
}

var patientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patients",
	Long:  "The list command prints the clinician's patients, newest first",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(listPatients) },
}

func listPatients(gw *gateway.Gateway) error {
	ctx, err := signIn(gw)
	if err != nil {
		return err
	}

	list, err := gw.Patients.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range list {
		fmt.Printf("%s %s %s %s tests=%d\n", p.Id, p.FullName(), p.DateOfBirth, p.Status, p.TotalTests)
	}
	fmt.Printf("Found %v patients\n", len(list))

	return nil
}

func init() {
	addCredentialFlags(patientsListCmd)
	patientsCmd.AddCommand(patientsListCmd)
	rootCmd.AddCommand(patientsCmd)
}

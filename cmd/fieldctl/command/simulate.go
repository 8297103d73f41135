package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/DataDog/datadog-agent/pkg/util/fxutil"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/perimetrix/fieldclinic/logger"
	"github.com/perimetrix/fieldclinic/patients"
	"github.com/perimetrix/fieldclinic/preferences"
	"github.com/perimetrix/fieldclinic/results"
	"github.com/perimetrix/fieldclinic/state"
	"github.com/perimetrix/fieldclinic/testrun"
)

var simulateParams = struct {
	TestType string
	Strategy string
	Eye      string
	Duration int
	Seed     int64
	Stop     int
}{}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated visual field test",
	Long:  "The simulate command runs a complete test against the simulated perimeter and prints the synthesized result",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fxutil.OneShot(simulate, fx.Provide(logger.NewProductionLogger, logger.Suggar))
	},
}

type printedResult struct {
	saved *results.TestResult
}

func (p *printedResult) AddTestResult(_ context.Context, r results.TestResult) (*results.TestResult, error) {
	r.Id = primitive.NewObjectID().Hex()
	p.saved = &r
	return &r, nil
}

func simulate(logger *zap.SugaredLogger) error {
	config := results.Configuration{
		TestType: results.TestType(simulateParams.TestType),
		Strategy: simulateParams.Strategy,
		Eye:      results.Eye(simulateParams.Eye),
		Duration: simulateParams.Duration,
	}
	patient := patients.Patient{
		Id:        primitive.NewObjectID().Hex(),
		FirstName: "Simulated",
		LastName:  "Patient",
		Status:    patients.StatusActive,
	}

	seed := simulateParams.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	clock := testrun.NewManualClock(time.Now())
	store := state.New("simulation", preferences.NewMemoryStore(), logger)
	persister := &printedResult{}
	options := testrun.Options{PersistCancelled: true, TickInterval: testrun.DefaultTickInterval}
	runner := testrun.NewRunner(store, persister, testrun.NewRandomSimulator(seed), clock, options, logger)
	defer runner.Close()

	if err := runner.Setup(patient, config); err != nil {
		return err
	}
	if err := runner.Start(context.Background()); err != nil {
		return err
	}

	if simulateParams.Stop > 0 && simulateParams.Stop < config.Duration {
		clock.Advance(time.Duration(simulateParams.Stop) * time.Second)
		if err := runner.Stop(); err != nil {
			return err
		}
	} else {
		clock.Advance(time.Duration(config.Duration) * time.Second)
	}

	status := runner.Status()
	if persister.saved == nil {
		return fmt.Errorf("the simulated run ended in phase %s without a result", status.Phase)
	}
	for _, n := range status.Notifications {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Kind, n.Message)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(persister.saved)
}

func init() {
	simulateCmd.Flags().StringVar(&simulateParams.TestType, "type", string(results.TestType242), "Test type (24-2, 30-2, 10-2, Custom)")
	simulateCmd.Flags().StringVar(&simulateParams.Strategy, "strategy", "SITA Standard", "Threshold strategy")
	simulateCmd.Flags().StringVar(&simulateParams.Eye, "eye", string(results.EyeRight), "Eye (OD, OS, OU)")
	simulateCmd.Flags().IntVar(&simulateParams.Duration, "duration", 300, "Test duration in seconds")
	simulateCmd.Flags().Int64Var(&simulateParams.Seed, "seed", 0, "Random seed, 0 picks one")
	simulateCmd.Flags().IntVar(&simulateParams.Stop, "stop-after", 0, "Stop the test after this many seconds")

	rootCmd.AddCommand(simulateCmd)
}

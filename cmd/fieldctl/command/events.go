package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/perimetrix/fieldclinic/auth"
	"github.com/perimetrix/fieldclinic/gateway"
	"github.com/perimetrix/fieldclinic/outbox"
)

var eventsLimit int64

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect outbox events",
	Long:  "The events command is used to inspect the events recorded for a clinician",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent events",
	Long:  "The list command prints the clinician's most recent outbox events, newest first",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(listEvents) },
}

func listEvents(gw *gateway.Gateway, events outbox.Repository) error {
	ctx, err := signIn(gw)
	if err != nil {
		return err
	}

	list, err := events.List(ctx, auth.GetAuthData(ctx).SubjectId, eventsLimit)
	if err != nil {
		return err
	}
	for _, e := range list {
		var payload bson.M
		if err := bson.Unmarshal(e.Payload, &payload); err != nil {
			return err
		}
		fmt.Printf("%s %s %v\n", e.CreatedTime.Format("2006-01-02T15:04:05Z07:00"), e.EventType, payload)
	}
	fmt.Printf("Found %v events\n", len(list))

	return nil
}

func init() {
	addCredentialFlags(eventsListCmd)
	eventsListCmd.Flags().Int64VarP(&eventsLimit, "limit", "n", 20, "Maximum number of events")
	eventsCmd.AddCommand(eventsListCmd)
	rootCmd.AddCommand(eventsCmd)
}

package command

import (
	"context"
	"fmt"
	"os"

	"github.com/DataDog/datadog-agent/pkg/util/fxutil"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/perimetrix/fieldclinic/api"
	"github.com/perimetrix/fieldclinic/auth"
	"github.com/perimetrix/fieldclinic/gateway"
)

var logLevel string

var credentials = struct {
	Email    string
	Password string
}{}

// Run executes a given function with dependencies supplied by the service DI graph
// `f` must return an error or nothing
// `opts` can be used to supply additional arguments that are not provided by the service
func Run(f interface{}, opts ...fx.Option) error {
	deps := append(opts, api.Dependencies()...)
	return fxutil.OneShot(f, deps...)
}

var rootCmd = &cobra.Command{
	Use:   "fieldctl",
	Short: "Helper tool to manage a field clinic workspace",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Overwrite zap's log level
		return os.Setenv("LOG_LEVEL", logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "v", "error", "Log Level")
}

// addCredentialFlags registers the flags of commands that act as a signed in clinician.
func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&credentials.Email, "email", os.Getenv("FIELDCLINIC_EMAIL"), "Clinician email")
	cmd.Flags().StringVar(&credentials.Password, "password", os.Getenv("FIELDCLINIC_PASSWORD"), "Clinician password")
}

// signIn returns a context carrying the clinician's authentication data.
func signIn(gw *gateway.Gateway) (context.Context, error) {
	if credentials.Email == "" || credentials.Password == "" {
		return nil, fmt.Errorf("--email and --password are required")
	}
	session, err := gw.SignIn(context.Background(), credentials.Email, credentials.Password)
	if err != nil {
		return nil, err
	}
	return auth.WithAuthData(context.Background(), session.Auth()), nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

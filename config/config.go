package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HttpPort             uint16        `envconfig:"FIELDCLINIC_HTTP_PORT" default:"8080" required:"true"`
	JwtSecret            string        `envconfig:"FIELDCLINIC_JWT_SECRET" required:"true"`
	SessionTTL           time.Duration `envconfig:"FIELDCLINIC_SESSION_TTL" default:"12h"`
	PreferencesFile      string        `envconfig:"FIELDCLINIC_PREFERENCES_FILE" default:"preferences.yaml"`
	MaintainTestCount    bool          `envconfig:"FIELDCLINIC_MAINTAIN_TEST_COUNT" default:"true"`
	PersistCancelledRuns bool          `envconfig:"FIELDCLINIC_PERSIST_CANCELLED_RUNS" default:"false"`
	SaveRedirectDelay    time.Duration `envconfig:"FIELDCLINIC_SAVE_REDIRECT_DELAY" default:"2s"`
	SimulationRandomSeed int64         `envconfig:"FIELDCLINIC_SIMULATION_SEED" default:"0"`
}

func New() *Config {
	return &Config{}
}

func NewConfig() (*Config, error) {
	cfg := New()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) LoadFromEnv() error {
	return envconfig.Process("", c)
}

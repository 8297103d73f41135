package preferences

import (
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/spf13/viper"

	"github.com/perimetrix/fieldclinic/config"
	errs "github.com/perimetrix/fieldclinic/errors"
)

const dashboardFrequencyKey = "dashboard_frequency"

// Frequency is the time granularity of the dashboard charts.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"

	DefaultFrequency = FrequencyWeekly
)

var ErrInvalidFrequency = fmt.Errorf("%w: dashboard frequency must be one of daily, weekly, monthly, yearly", errs.BadRequest)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

func ParseFrequency(value string) (Frequency, error) {
	f := Frequency(value)
	if !f.Valid() {
		return "", ErrInvalidFrequency
	}
	return f, nil
}

// Store persists display preferences outside the backend, one set per user.
type Store interface {
	DashboardFrequency(userId string) (Frequency, error)
	SetDashboardFrequency(userId string, frequency Frequency) error
}

func NewStore(cfg *config.Config) (Store, error) {
	return NewFileStore(cfg.PreferencesFile)
}

type FileStore struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

var _ Store = &FileStore{}

// NewFileStore reads preferences from a YAML file. A missing file starts empty.
func NewFileStore(path string) (*FileStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read preferences file %s: %w", path, err)
		}
	}

	return &FileStore{
		path: path,
		v:    v,
	}, nil
}

func (f *FileStore) DashboardFrequency(userId string) (Frequency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value := f.v.GetString(userKey(userId, dashboardFrequencyKey))
	if value == "" {
		return DefaultFrequency, nil
	}
	frequency := Frequency(value)
	if !frequency.Valid() {
		return DefaultFrequency, nil
	}
	return frequency, nil
}

func (f *FileStore) SetDashboardFrequency(userId string, frequency Frequency) error {
	if !frequency.Valid() {
		return ErrInvalidFrequency
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.v.Set(userKey(userId, dashboardFrequencyKey), string(frequency))
	if err := f.v.WriteConfigAs(f.path); err != nil {
		return fmt.Errorf("unable to write preferences file %s: %w", f.path, err)
	}
	return nil
}

func userKey(userId, key string) string {
	return fmt.Sprintf("users.%s.%s", userId, key)
}

type MemoryStore struct {
	mu          sync.Mutex
	frequencies map[string]Frequency
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{frequencies: make(map[string]Frequency)}
}

func (m *MemoryStore) DashboardFrequency(userId string) (Frequency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frequency, ok := m.frequencies[userId]; ok {
		return frequency, nil
	}
	return DefaultFrequency, nil
}

func (m *MemoryStore) SetDashboardFrequency(userId string, frequency Frequency) error {
	if !frequency.Valid() {
		return ErrInvalidFrequency
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.frequencies[userId] = frequency
	return nil
}

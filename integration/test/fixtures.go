package test

import (
	"fmt"
	"os"
	"strings"

	"github.com/perimetrix/fieldclinic/test"
)

// LoadTemplate loads a fixture and replaces {{key}} placeholders with values
func LoadTemplate(relativePath string, values map[string]string) ([]byte, error) {
	b, err := test.LoadFixture(relativePath)
	if err != nil {
		return nil, err
	}
	body := string(b)
	for key, value := range values {
		body = strings.ReplaceAll(body, fmt.Sprintf("{{%s}}", key), value)
	}
	return []byte(body), nil
}

// TempPreferencesFile returns a preferences path inside a fresh temporary directory
func TempPreferencesFile() (string, error) {
	dir, err := os.MkdirTemp("", "fieldclinic-integration")
	if err != nil {
		return "", err
	}
	return dir + string(os.PathSeparator) + "preferences.yaml", nil
}

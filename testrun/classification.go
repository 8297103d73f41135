package testrun

import "strings"

type FailureKind string

const (
	FailureAuth       FailureKind = "auth"
	FailureNetwork    FailureKind = "network"
	FailureForeignKey FailureKind = "foreign-key"
	FailureGeneric    FailureKind = "generic"
)

var failureMarkers = []struct {
	kind    FailureKind
	markers []string
}{
	{FailureAuth, []string{"row-level security", "jwt", "not authenticated", "permission denied"}},
	{FailureNetwork, []string{"network", "fetch", "connection", "timeout"}},
	{FailureForeignKey, []string{"foreign key"}},
}

// ClassifyFailure maps a persistence error to the kind of problem shown to the user.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureGeneric
	}
	message := strings.ToLower(err.Error())
	for _, f := range failureMarkers {
		for _, marker := range f.markers {
			if strings.Contains(message, marker) {
				return f.kind
			}
		}
	}
	return FailureGeneric
}

func (k FailureKind) Message() string {
	switch k {
	case FailureAuth:
		return "Authentication error: please sign in again to save test results"
	case FailureNetwork:
		return "Network error: the test result could not be saved, check your connection"
	case FailureForeignKey:
		return "The selected patient no longer exists, the test result was not saved"
	default:
		return "Failed to save test result"
	}
}

package recipe

import (
	"fmt"

	"github.com/containerd/errdefs"
)

// ConfigurationError reports an invalid combination of settings and
// options. It is raised before anything is fetched or built.
type ConfigurationError struct {
	Setting string // offending setting or option, e.g. "polyfill"
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration: %s: %s", e.Setting, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s=%s: %s", e.Setting, e.Value, e.Reason)
}

// Unwrap makes errdefs.IsInvalidArgument report true.
func (e *ConfigurationError) Unwrap() error {
	return errdefs.ErrInvalidArgument
}

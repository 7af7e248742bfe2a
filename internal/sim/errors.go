package sim

import "fmt"

// ConfigurationError reports malformed run inputs: bad shapes, empty or
// unsorted time grids, unknown references. Reported immediately, never
// retried.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sim: bad %s: %s", e.Field, e.Msg)
}

package device

import (
	"errors"
	"fmt"
)

// ErrNotAvailable indicates the requested backend cannot run on this host.
var ErrNotAvailable = errors.New("device: backend not available")

// CompilationError carries the backend compiler's diagnostics verbatim.
// Kernel generation is deterministic, so compilation is never retried.
type CompilationError struct {
	Backend     string
	Diagnostics string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("device: %s kernel compilation failed:\n%s", e.Backend, e.Diagnostics)
}

// LaunchError indicates a kernel launch or device transfer failed. Fatal
// for the run; the caller must retry with a smaller trajectory count or
// thread-block size.
type LaunchError struct {
	Backend string
	Op      string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("device: %s %s failed: %v", e.Backend, e.Op, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// DeviceStateError reports a host/device buffer shape mismatch. These are
// programming-contract violations checked before every launch, never
// recoverable runtime conditions.
type DeviceStateError struct {
	What string
	Want int
	Got  int
}

func (e *DeviceStateError) Error() string {
	return fmt.Sprintf("device: %s: want %d, got %d", e.What, e.Want, e.Got)
}

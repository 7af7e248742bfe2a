package device

import "fmt"

// DefaultThreads is the thread-block size used when the caller does not
// request one.
const DefaultThreads = 32

// LaunchGeometry is the thread/block configuration for one run. Total is
// Sims rounded up to a whole number of blocks; threads in [Sims, Total)
// simulate padding rows whose results are discarded.
type LaunchGeometry struct {
	Threads int
	Blocks  int
	Total   int
	Sims    int
}

// NewGeometry derives the launch geometry for sims trajectories. threads <= 0
// selects DefaultThreads.
func NewGeometry(sims, threads int) (LaunchGeometry, error) {
	if sims <= 0 {
		return LaunchGeometry{}, fmt.Errorf("device: trajectory count must be positive, got %d", sims)
	}
	if threads <= 0 {
		threads = DefaultThreads
	}
	blocks := (sims + threads - 1) / threads
	return LaunchGeometry{
		Threads: threads,
		Blocks:  blocks,
		Total:   blocks * threads,
		Sims:    sims,
	}, nil
}

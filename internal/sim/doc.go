// Package sim schedules SSA kernel execution over batches of independent
// trajectories.
//
// A Simulator moves through Idle -> Compiled -> Configured -> Running ->
// Collected -> Idle per run. Compilation happens once and is cached; launch
// geometry (threads, blocks, padded total) is derived fresh from each run's
// trajectory count. Two execution modes are supported:
//
//   - batch: a single launch consumes the whole time grid
//   - step: one launch per reporting interval, synchronizing after each,
//     with progress observer hooks
//
// Trajectories are embarrassingly parallel: result ordering is defined
// solely by thread index and is stable across runs for identical inputs and
// seeds. There is no cancellation mid-launch; context cancellation is
// honored between step-mode launches.
package sim

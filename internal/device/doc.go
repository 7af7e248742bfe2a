// Package device provides execution backends for the generated SSA kernels.
//
// The package selects the best available backend:
//
//   - CUDA: compiles the generated kernel source with nvrtc and launches it
//     on the GPU (build with -tags cuda)
//   - CPU: reference backend executing the identical SSA semantics natively,
//     always available
//
// Selection is automatic (CUDA when available, else CPU) and can be forced
// with the STOCHSIM_BACKEND environment variable. The CUDA_DEVICE variable
// picks the accelerator; absent means device 0.
//
// Both backends consume the same Kernel description and the same Buffers
// layout, so trajectory results are ordered identically by thread index
// regardless of where they ran.
package device

//go:build !cuda

package device

// CUDABackend stub for builds without CUDA support.
type CUDABackend struct{}

func NewCUDABackend() *CUDABackend { return &CUDABackend{} }

func (c *CUDABackend) Name() string    { return "cuda (not available)" }
func (c *CUDABackend) Available() bool { return false }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) Compile(k Kernel) (Program, error) {
	return nil, ErrNotAvailable
}

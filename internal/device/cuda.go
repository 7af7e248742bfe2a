//go:build cuda

package device

import (
	"context"
	"os"
	"strconv"
	"unsafe"
)

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -lcuda -lnvrtc

#include <cuda.h>
#include <nvrtc.h>
#include <stdlib.h>
*/
import "C"

// CUDABackend compiles generated kernel source with nvrtc and launches it
// through the driver API. One context is retained for the backend lifetime.
type CUDABackend struct {
	available bool
	device    C.CUdevice
	cuCtx     C.CUcontext
	name      string
}

// NewCUDABackend initializes the driver and targets the device named by
// CUDA_DEVICE, defaulting to device 0.
func NewCUDABackend() *CUDABackend {
	b := &CUDABackend{}
	if C.cuInit(0) != C.CUDA_SUCCESS {
		return b
	}
	var count C.int
	if C.cuDeviceGetCount(&count) != C.CUDA_SUCCESS || count == 0 {
		return b
	}
	ordinal := 0
	if env := os.Getenv("CUDA_DEVICE"); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			ordinal = n
		}
	}
	if C.cuDeviceGet(&b.device, C.int(ordinal)) != C.CUDA_SUCCESS {
		return b
	}
	var buf [256]C.char
	C.cuDeviceGetName(&buf[0], 256, b.device)
	b.name = C.GoString(&buf[0])
	if C.cuDevicePrimaryCtxRetain(&b.cuCtx, b.device) != C.CUDA_SUCCESS {
		return b
	}
	b.available = true
	return b
}

func (b *CUDABackend) Name() string {
	if b.available {
		return "cuda (" + b.name + ")"
	}
	return "cuda (not available)"
}

func (b *CUDABackend) Available() bool { return b.available }

func (b *CUDABackend) Cleanup() {
	if b.available {
		C.cuDevicePrimaryCtxRelease(b.device)
		b.available = false
	}
}

func cuErr(res C.CUresult, op string) error {
	if res == C.CUDA_SUCCESS {
		return nil
	}
	var msg *C.char
	C.cuGetErrorString(res, &msg)
	return &LaunchError{Backend: "cuda", Op: op, Err: errString(C.GoString(msg))}
}

type errString string

func (e errString) Error() string { return string(e) }

// Compile builds the source to PTX with nvrtc and resolves both entry
// points. Compiler diagnostics are surfaced verbatim; generation is
// deterministic so there is no retry.
func (b *CUDABackend) Compile(k Kernel) (Program, error) {
	if !b.available {
		return nil, ErrNotAvailable
	}
	src := C.CString(k.Source)
	defer C.free(unsafe.Pointer(src))
	name := C.CString("ssa_cuda_code.cu")
	defer C.free(unsafe.Pointer(name))

	var prog C.nvrtcProgram
	if C.nvrtcCreateProgram(&prog, src, name, 0, nil, nil) != C.NVRTC_SUCCESS {
		return nil, &CompilationError{Backend: "cuda", Diagnostics: "nvrtcCreateProgram failed"}
	}
	defer C.nvrtcDestroyProgram(&prog)

	opt := C.CString("--use_fast_math")
	defer C.free(unsafe.Pointer(opt))
	opts := []*C.char{opt}
	res := C.nvrtcCompileProgram(prog, 1, &opts[0])

	var logSize C.size_t
	C.nvrtcGetProgramLogSize(prog, &logSize)
	diag := ""
	if logSize > 1 {
		logBuf := (*C.char)(C.malloc(logSize))
		defer C.free(unsafe.Pointer(logBuf))
		C.nvrtcGetProgramLog(prog, logBuf)
		diag = C.GoString(logBuf)
	}
	if res != C.NVRTC_SUCCESS {
		return nil, &CompilationError{Backend: "cuda", Diagnostics: diag}
	}

	var ptxSize C.size_t
	C.nvrtcGetPTXSize(prog, &ptxSize)
	ptx := (*C.char)(C.malloc(ptxSize))
	defer C.free(unsafe.Pointer(ptx))
	C.nvrtcGetPTX(prog, ptx)

	p := &cudaProgram{k: k, cuCtx: b.cuCtx}
	if err := cuErr(C.cuCtxSetCurrent(b.cuCtx), "cuCtxSetCurrent"); err != nil {
		return nil, err
	}
	if res := C.cuModuleLoadData(&p.module, unsafe.Pointer(ptx)); res != C.CUDA_SUCCESS {
		return nil, &CompilationError{Backend: "cuda", Diagnostics: "cuModuleLoadData: " + diag}
	}
	oneStep := C.CString("Gillespie_one_step")
	defer C.free(unsafe.Pointer(oneStep))
	allSteps := C.CString("Gillespie_all_steps")
	defer C.free(unsafe.Pointer(allSteps))
	if res := C.cuModuleGetFunction(&p.oneStep, p.module, oneStep); res != C.CUDA_SUCCESS {
		C.cuModuleUnload(p.module)
		return nil, &CompilationError{Backend: "cuda", Diagnostics: "missing entry point Gillespie_one_step"}
	}
	if res := C.cuModuleGetFunction(&p.allSteps, p.module, allSteps); res != C.CUDA_SUCCESS {
		C.cuModuleUnload(p.module)
		return nil, &CompilationError{Backend: "cuda", Diagnostics: "missing entry point Gillespie_all_steps"}
	}
	return p, nil
}

type cudaProgram struct {
	k        Kernel
	cuCtx    C.CUcontext
	module   C.CUmodule
	oneStep  C.CUfunction
	allSteps C.CUfunction
}

func (p *cudaProgram) Release() {
	C.cuCtxSetCurrent(p.cuCtx)
	C.cuModuleUnload(p.module)
}

func (p *cudaProgram) check(b *Buffers) error {
	if b.NumSpecies != p.k.NumSpecies {
		return &DeviceStateError{What: "species width", Want: p.k.NumSpecies, Got: b.NumSpecies}
	}
	if b.NumParams != p.k.NumParams {
		return &DeviceStateError{What: "parameter width", Want: p.k.NumParams, Got: b.NumParams}
	}
	if len(b.SpeciesFlat()) != b.Geom.Total*b.NumSpecies {
		return &DeviceStateError{What: "species buffer", Want: b.Geom.Total * b.NumSpecies, Got: len(b.SpeciesFlat())}
	}
	return nil
}

// alloc wraps cuMemAlloc with an upload; freed by the caller's defer so
// every exit path, including launch failure, releases device memory.
func alloc(n int, src unsafe.Pointer) (C.CUdeviceptr, error) {
	var ptr C.CUdeviceptr
	if err := cuErr(C.cuMemAlloc(&ptr, C.size_t(n)), "cuMemAlloc"); err != nil {
		return 0, err
	}
	if src != nil {
		if err := cuErr(C.cuMemcpyHtoD(ptr, src, C.size_t(n)), "cuMemcpyHtoD"); err != nil {
			C.cuMemFree(ptr)
			return 0, err
		}
	}
	return ptr, nil
}

func (p *cudaProgram) SingleStep(ctx context.Context, b *Buffers, start []float32, end float32, seed uint64) ([]int32, []float32, error) {
	if err := p.check(b); err != nil {
		return nil, nil, err
	}
	if len(start) != b.Geom.Total {
		return nil, nil, &DeviceStateError{What: "start times", Want: b.Geom.Total, Got: len(start)}
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := cuErr(C.cuCtxSetCurrent(p.cuCtx), "cuCtxSetCurrent"); err != nil {
		return nil, nil, err
	}

	ns := p.k.NumSpecies
	total := b.Geom.Total
	in := b.SpeciesFlat()
	table := b.ParamTable()

	dIn, err := alloc(4*len(in), unsafe.Pointer(&in[0]))
	if err != nil {
		return nil, nil, err
	}
	defer C.cuMemFree(dIn)
	dOut, err := alloc(4*len(in), nil)
	if err != nil {
		return nil, nil, err
	}
	defer C.cuMemFree(dOut)
	dParams, err := alloc(4*len(table), unsafe.Pointer(&table[0]))
	if err != nil {
		return nil, nil, err
	}
	defer C.cuMemFree(dParams)
	dStart, err := alloc(4*len(start), unsafe.Pointer(&start[0]))
	if err != nil {
		return nil, nil, err
	}
	defer C.cuMemFree(dStart)
	dLast, err := alloc(4*total, nil)
	if err != nil {
		return nil, nil, err
	}
	defer C.cuMemFree(dLast)

	endC := C.float(end)
	seedC := C.ulonglong(seed)
	args := []unsafe.Pointer{
		unsafe.Pointer(&dIn),
		unsafe.Pointer(&dOut),
		unsafe.Pointer(&dParams),
		unsafe.Pointer(&dStart),
		unsafe.Pointer(&endC),
		unsafe.Pointer(&dLast),
		unsafe.Pointer(&seedC),
	}
	if err := cuErr(C.cuLaunchKernel(p.oneStep,
		C.uint(b.Geom.Blocks), 1, 1,
		C.uint(b.Geom.Threads), 1, 1,
		0, nil, &args[0], nil), "cuLaunchKernel"); err != nil {
		return nil, nil, err
	}
	if err := cuErr(C.cuCtxSynchronize(), "cuCtxSynchronize"); err != nil {
		return nil, nil, err
	}

	out := make([]int32, total*ns)
	if err := cuErr(C.cuMemcpyDtoH(unsafe.Pointer(&out[0]), dOut, C.size_t(4*len(out))), "cuMemcpyDtoH"); err != nil {
		return nil, nil, err
	}
	times := make([]float32, total)
	if err := cuErr(C.cuMemcpyDtoH(unsafe.Pointer(&times[0]), dLast, C.size_t(4*len(times))), "cuMemcpyDtoH"); err != nil {
		return nil, nil, err
	}
	return out, times, nil
}

func (p *cudaProgram) AllSteps(ctx context.Context, b *Buffers, tspan []float32, seed uint64) ([]int32, error) {
	if err := p.check(b); err != nil {
		return nil, err
	}
	if len(tspan) == 0 {
		return nil, &DeviceStateError{What: "time grid length", Want: 1, Got: 0}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cuErr(C.cuCtxSetCurrent(p.cuCtx), "cuCtxSetCurrent"); err != nil {
		return nil, err
	}

	ns := p.k.NumSpecies
	total := b.Geom.Total
	nt := len(tspan)
	in := b.SpeciesFlat()
	table := b.ParamTable()

	dIn, err := alloc(4*len(in), unsafe.Pointer(&in[0]))
	if err != nil {
		return nil, err
	}
	defer C.cuMemFree(dIn)
	dOut, err := alloc(4*total*nt*ns, nil)
	if err != nil {
		return nil, err
	}
	defer C.cuMemFree(dOut)
	dParams, err := alloc(4*len(table), unsafe.Pointer(&table[0]))
	if err != nil {
		return nil, err
	}
	defer C.cuMemFree(dParams)
	dTspan, err := alloc(4*nt, unsafe.Pointer(&tspan[0]))
	if err != nil {
		return nil, err
	}
	defer C.cuMemFree(dTspan)

	ntC := C.int(nt)
	seedC := C.ulonglong(seed)
	args := []unsafe.Pointer{
		unsafe.Pointer(&dIn),
		unsafe.Pointer(&dOut),
		unsafe.Pointer(&dParams),
		unsafe.Pointer(&dTspan),
		unsafe.Pointer(&ntC),
		unsafe.Pointer(&seedC),
	}
	if err := cuErr(C.cuLaunchKernel(p.allSteps,
		C.uint(b.Geom.Blocks), 1, 1,
		C.uint(b.Geom.Threads), 1, 1,
		0, nil, &args[0], nil), "cuLaunchKernel"); err != nil {
		return nil, err
	}
	if err := cuErr(C.cuCtxSynchronize(), "cuCtxSynchronize"); err != nil {
		return nil, err
	}

	out := make([]int32, total*nt*ns)
	if err := cuErr(C.cuMemcpyDtoH(unsafe.Pointer(&out[0]), dOut, C.size_t(4*len(out))), "cuMemcpyDtoH"); err != nil {
		return nil, err
	}
	return out, nil
}

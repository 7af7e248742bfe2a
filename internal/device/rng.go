package device

import "math"

// rngState is an xorshift64* stream. The generated CUDA source embeds the
// same constants, so the reference backend and the device draw identical
// uniforms for a given (seed, thread, start time).
type rngState uint64

// rngInit mixes the run seed, thread index and launch start time through a
// splitmix64 round. Including the start time gives step-mode launches fresh
// streams per reporting interval while keeping the first interval identical
// to a batch-mode launch starting at the same time.
func rngInit(seed uint64, tid int, start float32) rngState {
	z := seed
	z ^= uint64(tid) + 0x9e3779b97f4a7c15
	z ^= uint64(math.Float32bits(start)) << 32
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	if z == 0 {
		z = 0x9e3779b97f4a7c15
	}
	return rngState(z)
}

// uniform returns a draw in (0, 1]; never zero, so -log(u) stays finite.
func (r *rngState) uniform() float64 {
	x := uint64(*r)
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	*r = rngState(x)
	x *= 0x2545f4914f6cdd1d
	return float64((x>>11)+1) * (1.0 / 9007199254740992.0)
}

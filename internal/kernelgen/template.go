package kernelgen

// cudaTemplate is the Gillespie SSA kernel skeleton. Format arguments:
// n_species, n_params, n_reactions, stoichiometry rows, hazard statements.
//
// Both entry points run one trajectory per thread. The parameter table is a
// transposed 2D table in global memory indexed by (parameter, thread); the
// per-thread RNG is an xorshift64* stream seeded from the run seed, the
// global thread index and the launch start time, matching the host
// reference backend bit for bit.
const cudaTemplate = `#define N_SPECIES %d
#define N_PARAMS %d
#define N_REACTIONS %d

#define PARAM(q,tid) (param_tex[(q)*(gridDim.x*blockDim.x)+(tid)])

__device__ __constant__ const int stoch[N_REACTIONS*N_SPECIES] = {
%s};

__device__ unsigned long long rng_init(unsigned long long seed, int tid,
                                       float start)
{
    unsigned long long z = seed;
    z ^= (unsigned long long)tid + 0x9e3779b97f4a7c15ULL;
    z ^= (unsigned long long)__float_as_uint(start) << 32;
    z += 0x9e3779b97f4a7c15ULL;
    z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9ULL;
    z = (z ^ (z >> 27)) * 0x94d049bb133111ebULL;
    z = z ^ (z >> 31);
    if (z == 0ULL)
        z = 0x9e3779b97f4a7c15ULL;
    return z;
}

__device__ double rng_uniform(unsigned long long *state)
{
    unsigned long long x = *state;
    x ^= x >> 12;
    x ^= x << 25;
    x ^= x >> 27;
    *state = x;
    x = x * 0x2545f4914f6cdd1dULL;
    return (double)((x >> 11) + 1ULL) * (1.0 / 9007199254740992.0);
}

__device__ void hazards(double *h, const int *y, const float *param_tex,
                        const int tid)
{
%s}

__device__ float ssa_advance(int *y, const float *param_tex, const int tid,
                             float t, const float t_end,
                             unsigned long long *rng)
{
    double h[N_REACTIONS];
    while (t < t_end) {
        hazards(h, y, param_tex, tid);
        double h0 = 0.0;
        for (int i = 0; i < N_REACTIONS; i++)
            h0 += h[i];
        if (h0 <= 0.0)
            return t_end;
        double u1 = rng_uniform(rng);
        double u2 = rng_uniform(rng);
        float dt = (float)(-log(u1) / h0);
        if (t + dt >= t_end)
            return t_end;
        t += dt;
        double mu = u2 * h0;
        double cum = 0.0;
        int r = N_REACTIONS - 1;
        for (int i = 0; i < N_REACTIONS; i++) {
            cum += h[i];
            if (cum > mu) {
                r = i;
                break;
            }
        }
        for (int j = 0; j < N_SPECIES; j++)
            y[j] += stoch[r * N_SPECIES + j];
    }
    return t;
}

extern "C" __global__ void Gillespie_one_step(const int *species_in,
                                              int *species_out,
                                              const float *param_tex,
                                              const float *start_times,
                                              const float end_time,
                                              float *last_time,
                                              const unsigned long long seed)
{
    const int tid = blockIdx.x * blockDim.x + threadIdx.x;
    int y[N_SPECIES];
    for (int j = 0; j < N_SPECIES; j++)
        y[j] = species_in[tid * N_SPECIES + j];
    unsigned long long rng = rng_init(seed, tid, start_times[tid]);
    float t = ssa_advance(y, param_tex, tid, start_times[tid], end_time, &rng);
    for (int j = 0; j < N_SPECIES; j++)
        species_out[tid * N_SPECIES + j] = y[j];
    last_time[tid] = t;
}

extern "C" __global__ void Gillespie_all_steps(const int *species_in,
                                               int *species_out,
                                               const float *param_tex,
                                               const float *tspan,
                                               const int n_times,
                                               const unsigned long long seed)
{
    const int tid = blockIdx.x * blockDim.x + threadIdx.x;
    int y[N_SPECIES];
    for (int j = 0; j < N_SPECIES; j++)
        y[j] = species_in[tid * N_SPECIES + j];
    unsigned long long rng = rng_init(seed, tid, tspan[0]);
    float t = tspan[0];
    for (int k = 0; k < n_times; k++) {
        t = ssa_advance(y, param_tex, tid, t, tspan[k], &rng);
        for (int j = 0; j < N_SPECIES; j++)
            species_out[(tid * n_times + k) * N_SPECIES + j] = y[j];
    }
}
`

package device

// Buffers owns the host-side staging of per-trajectory state for one run.
// All buffers are sized to the launch geometry's Total thread count, not the
// trajectory count: rows in [Sims, Total) are padding required by the
// geometry, stay zero, and must never surface in results.
//
// The parameter table is kept in transposed (parameter-major) layout,
// table[q*Total+tid], the flat-memory analogue of a 2D texture indexed by
// (parameter, trajectory), so adjacent threads read adjacent words.
type Buffers struct {
	Geom       LaunchGeometry
	NumSpecies int
	NumParams  int

	params  []float32 // NumParams x Total, parameter-major
	species []int32   // Total x NumSpecies, thread-major
	times   []float32 // per-thread clock
}

// NewBuffers allocates zeroed buffers for the given geometry.
func NewBuffers(geom LaunchGeometry, numSpecies, numParams int) *Buffers {
	return &Buffers{
		Geom:       geom,
		NumSpecies: numSpecies,
		NumParams:  numParams,
		params:     make([]float32, numParams*geom.Total),
		species:    make([]int32, geom.Total*numSpecies),
		times:      make([]float32, geom.Total),
	}
}

// LoadParameters fills rows [0, Sims) of the parameter table from
// per-trajectory parameter vectors. Padding rows stay zero.
func (b *Buffers) LoadParameters(rows [][]float64) error {
	if len(rows) != b.Geom.Sims {
		return &DeviceStateError{What: "parameter rows", Want: b.Geom.Sims, Got: len(rows)}
	}
	for tid, row := range rows {
		if len(row) != b.NumParams {
			return &DeviceStateError{What: "parameter row length", Want: b.NumParams, Got: len(row)}
		}
		for q, v := range row {
			b.params[q*b.Geom.Total+tid] = float32(v)
		}
	}
	return nil
}

// LoadSpecies fills rows [0, Sims) of the species buffer from
// per-trajectory initial-condition vectors.
func (b *Buffers) LoadSpecies(rows [][]int64) error {
	if len(rows) != b.Geom.Sims {
		return &DeviceStateError{What: "species rows", Want: b.Geom.Sims, Got: len(rows)}
	}
	for tid, row := range rows {
		if len(row) != b.NumSpecies {
			return &DeviceStateError{What: "species row length", Want: b.NumSpecies, Got: len(row)}
		}
		for j, v := range row {
			b.species[tid*b.NumSpecies+j] = int32(v)
		}
	}
	return nil
}

// SetSpecies replaces the whole species buffer with a full-width state
// array, as produced by a previous single-step launch.
func (b *Buffers) SetSpecies(flat []int32) error {
	if len(flat) != len(b.species) {
		return &DeviceStateError{What: "species buffer", Want: len(b.species), Got: len(flat)}
	}
	copy(b.species, flat)
	return nil
}

// SetTimes replaces the per-thread clock buffer.
func (b *Buffers) SetTimes(t []float32) error {
	if len(t) != b.Geom.Total {
		return &DeviceStateError{What: "time buffer", Want: b.Geom.Total, Got: len(t)}
	}
	copy(b.times, t)
	return nil
}

// FillTimes sets every per-thread clock to t.
func (b *Buffers) FillTimes(t float32) {
	for i := range b.times {
		b.times[i] = t
	}
}

// Param reads the table entry for parameter q of thread tid.
func (b *Buffers) Param(q, tid int) float32 { return b.params[q*b.Geom.Total+tid] }

// ParamTable exposes the transposed table for device upload.
func (b *Buffers) ParamTable() []float32 { return b.params }

// SpeciesFlat exposes the species buffer for device upload.
func (b *Buffers) SpeciesFlat() []int32 { return b.species }

// Times exposes the per-thread clock buffer for device upload.
func (b *Buffers) Times() []float32 { return b.times }

// DownloadState copies back the first Sims species rows; padding rows are
// discarded here and nowhere else.
func (b *Buffers) DownloadState() [][]int32 {
	rows := make([][]int32, b.Geom.Sims)
	for tid := 0; tid < b.Geom.Sims; tid++ {
		row := make([]int32, b.NumSpecies)
		copy(row, b.species[tid*b.NumSpecies:(tid+1)*b.NumSpecies])
		rows[tid] = row
	}
	return rows
}

// Release drops the backing storage. The zero-length buffers fail shape
// checks on any later launch attempt.
func (b *Buffers) Release() {
	b.params = nil
	b.species = nil
	b.times = nil
}

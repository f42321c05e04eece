package monitor

// DefaultWindowSize is how many GPU samples are kept.
const DefaultWindowSize = 100

// GPUWindow is a fixed-size ring of GPU samples. Once full, each push
// evicts the oldest sample. It is not safe for concurrent use; Store
// guards it.
type GPUWindow struct {
	data  []GPUSample
	head  int
	count int
}

// GPUSnapshot is the window as parallel series, oldest first. All five
// slices always have the same length.
type GPUSnapshot struct {
	Timestamps  []string  `json:"timestamps"`
	Temperature []float64 `json:"temperature"`
	Power       []float64 `json:"power"`
	MemoryUsed  []float64 `json:"memory_used"`
	MemoryTotal []float64 `json:"memory_total"`
}

// Len returns the number of samples in the snapshot.
func (s GPUSnapshot) Len() int {
	return len(s.Timestamps)
}

// NewGPUWindow creates a window holding at most size samples.
func NewGPUWindow(size int) *GPUWindow {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &GPUWindow{data: make([]GPUSample, size)}
}

// Push adds a sample, evicting the oldest when full.
func (w *GPUWindow) Push(s GPUSample) {
	w.data[w.head] = s
	w.head = (w.head + 1) % len(w.data)
	if w.count < len(w.data) {
		w.count++
	}
}

// Len returns the number of stored samples.
func (w *GPUWindow) Len() int {
	return w.count
}

// Cap returns the window size.
func (w *GPUWindow) Cap() int {
	return len(w.data)
}

// Samples returns the stored samples in chronological order.
func (w *GPUWindow) Samples() []GPUSample {
	out := make([]GPUSample, w.count)
	start := (w.head - w.count + len(w.data)) % len(w.data)
	for i := 0; i < w.count; i++ {
		out[i] = w.data[(start+i)%len(w.data)]
	}
	return out
}

// Snapshot returns the window as parallel series. Empty windows give
// empty, non-nil slices so they encode as [] rather than null.
func (w *GPUWindow) Snapshot() GPUSnapshot {
	snap := GPUSnapshot{
		Timestamps:  make([]string, 0, w.count),
		Temperature: make([]float64, 0, w.count),
		Power:       make([]float64, 0, w.count),
		MemoryUsed:  make([]float64, 0, w.count),
		MemoryTotal: make([]float64, 0, w.count),
	}
	for _, s := range w.Samples() {
		snap.Timestamps = append(snap.Timestamps, s.Timestamp.Format(TimestampLayout))
		snap.Temperature = append(snap.Temperature, s.TemperatureC)
		snap.Power = append(snap.Power, s.PowerW)
		snap.MemoryUsed = append(snap.MemoryUsed, s.MemoryUsedMB)
		snap.MemoryTotal = append(snap.MemoryTotal, s.MemoryTotalMB)
	}
	return snap
}

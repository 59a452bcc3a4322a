package profiler

// EMAWeight is the weight given to each new sample by the running averages.
const EMAWeight = 0.2

// Smooth folds sample into avg with weight EMAWeight. An unseeded average takes the sample as is.
//
// Parameters:
//   - avg: the current average
//   - sample: the new sample
//   - seeded: whether avg already holds a value
//
// Returns:
//   - float64: the updated average
func Smooth(avg, sample float64, seeded bool) float64 {
	if !seeded {
		return sample
	}
	return (1-EMAWeight)*avg + EMAWeight*sample
}

// Metrics holds the exponentially smoothed frame and submission times in milliseconds.
// The zero value is ready to use.
type Metrics struct {
	frameTimeAvg float64
	jsTimeAvg    float64
	samples      uint64
}

// Update folds one frame's inter-frame delta and submission cost into the averages.
//
// Parameters:
//   - frameTimeMs: time since the previous frame
//   - jsTimeMs: host time spent producing this frame
func (m *Metrics) Update(frameTimeMs, jsTimeMs float64) {
	seeded := m.samples > 0
	m.frameTimeAvg = Smooth(m.frameTimeAvg, frameTimeMs, seeded)
	m.jsTimeAvg = Smooth(m.jsTimeAvg, jsTimeMs, seeded)
	m.samples++
}

// FrameTimeAvgMs returns the smoothed inter-frame delta.
func (m *Metrics) FrameTimeAvgMs() float64 {
	return m.frameTimeAvg
}

// JSTimeAvgMs returns the smoothed submission cost.
func (m *Metrics) JSTimeAvgMs() float64 {
	return m.jsTimeAvg
}

// Samples returns how many frames have been folded in.
func (m *Metrics) Samples() uint64 {
	return m.samples
}

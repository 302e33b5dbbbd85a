package audio

import "math"

// silenceFloorDBFS is reported for frames whose RMS falls below one quantisation
// step; log10 is undefined at zero and meaningless below the noise floor.
const silenceFloorDBFS = -100.0

// RMS computes the root-mean-square amplitude of little-endian int16 PCM.
// Returns 0 for empty input.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := float64(int16(pcm[i*2]) | int16(pcm[i*2+1])<<8)
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// EnergyDBFS computes frame energy in decibels relative to full scale for
// little-endian int16 PCM. Frames with RMS below 1 report -100 dBFS.
func EnergyDBFS(pcm []byte) float64 {
	rms := RMS(pcm)
	if rms < 1 {
		return silenceFloorDBFS
	}
	return 20 * math.Log10(rms/32768)
}

// EnergyGate classifies frames as too quiet to bother running VAD on.
// It is pure and deterministic: equal input always yields equal output.
type EnergyGate struct {
	// ThresholdDBFS is the energy level below which a frame is considered
	// quiet (e.g., -35).
	ThresholdDBFS float64
}

// TooQuiet reports whether the frame's energy falls below the gate threshold.
func (g EnergyGate) TooQuiet(frame Frame) bool {
	return EnergyDBFS(frame.PCM) < g.ThresholdDBFS
}

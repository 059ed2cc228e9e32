package audiosync

import "sort"

// Consensus derives the single global offset from the per-interval samples:
// for every sample it counts how many samples fall within tolerance of it and
// keeps the largest such group, then averages the group. The run must trust
// the majority cluster rather than all samples or the raw median, so one
// severely wrong interval estimate cannot shift the global offset.
//
// ok is false when no samples exist; the caller then falls back to
// camera-audio-only for the entire run.
func Consensus(samples []Sample, toleranceSeconds float64) (offset float64, ok bool) {
	if len(samples) == 0 {
		return 0, false
	}

	offsets := make([]float64, len(samples))
	for i, s := range samples {
		offsets[i] = s.OffsetSeconds
	}
	sort.Float64s(offsets)

	var best []float64
	for _, anchor := range offsets {
		var cluster []float64
		for _, candidate := range offsets {
			if abs(candidate-anchor) <= toleranceSeconds {
				cluster = append(cluster, candidate)
			}
		}
		if len(cluster) > len(best) {
			best = cluster
		}
	}

	var sum float64
	for _, o := range best {
		sum += o
	}
	return sum / float64(len(best)), true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

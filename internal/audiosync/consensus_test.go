package audiosync_test

import (
	"math"
	"testing"

	"cvcutter/internal/audiosync"
)

func samplesFrom(offsets ...float64) []audiosync.Sample {
	out := make([]audiosync.Sample, len(offsets))
	for i, o := range offsets {
		out[i] = audiosync.Sample{IntervalIndex: i, OffsetSeconds: o}
	}
	return out
}

func TestConsensusIgnoresSingleOutlier(t *testing.T) {
	offset, ok := audiosync.Consensus(samplesFrom(5.0, 5.1, 4.9, 40.0), 1.0)
	if !ok {
		t.Fatal("expected consensus")
	}
	if math.Abs(offset-5.0) > 1e-9 {
		t.Fatalf("consensus = %v, want 5.0", offset)
	}
}

func TestConsensusWithNoSamples(t *testing.T) {
	if _, ok := audiosync.Consensus(nil, 1.0); ok {
		t.Fatal("expected no consensus for empty sample set")
	}
}

func TestConsensusSingleSample(t *testing.T) {
	offset, ok := audiosync.Consensus(samplesFrom(-2.5), 1.0)
	if !ok || offset != -2.5 {
		t.Fatalf("got (%v, %v), want (-2.5, true)", offset, ok)
	}
}

func TestConsensusPicksLargestCluster(t *testing.T) {
	// Two clusters: {1.0, 1.2} and {10.0, 10.1, 10.3}.
	offset, ok := audiosync.Consensus(samplesFrom(1.0, 1.2, 10.0, 10.1, 10.3), 0.5)
	if !ok {
		t.Fatal("expected consensus")
	}
	want := (10.0 + 10.1 + 10.3) / 3
	if math.Abs(offset-want) > 1e-9 {
		t.Fatalf("consensus = %v, want %v", offset, want)
	}
}

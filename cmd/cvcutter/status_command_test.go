package main

import (
	"testing"
	"time"

	"cvcutter/internal/config"
	"cvcutter/internal/detect"
	"cvcutter/internal/encoding"
	"cvcutter/internal/pipeline"
	"cvcutter/internal/uploader"
)

func TestStatusWithEmptyState(t *testing.T) {
	configPath := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "No uploads recorded")
}

func TestStatusRendersHistory(t *testing.T) {
	configPath := setupCLITestEnv(t)

	// Resolve the state path the same way the command will.
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store := uploader.NewFileStore(cfg.Upload.StateFile)
	if err := store.Save(uploader.State{
		QuotaResetTime: time.Now().Add(6 * time.Hour),
		UploadsToday:   2,
		UploadHistory: []uploader.HistoryEntry{
			{ID: "a", FilePath: "/out/show_performance_1.mp4", VideoID: "abc123", Status: uploader.StatusSuccess, Timestamp: time.Now()},
			{ID: "b", FilePath: "/out/show_performance_2.mp4", Status: uploader.StatusFailed, Error: "server returned 503", Timestamp: time.Now()},
		},
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Uploads this quota window: 2 of 6")
	requireContains(t, out, "show_performance_1.mp4")
	requireContains(t, out, "abc123")
	requireContains(t, out, "server returned 503")
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00:00"},
		{59.9, "0:00:59"},
		{61, "0:01:01"},
		{3723, "1:02:03"},
	}
	for _, tc := range cases {
		if got := formatTimestamp(tc.seconds); got != tc.want {
			t.Fatalf("formatTimestamp(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestIndexOutputsSkipsFailedOrdinals(t *testing.T) {
	result := pipeline.Result{
		Intervals: []detect.Interval{{Start: 0, End: 1}, {Start: 2, End: 3}, {Start: 4, End: 5}},
		Encoded: encoding.Result{
			Outputs:       []string{"/out/a_performance_1.mp4", "/out/a_performance_3.mp4"},
			FailedIndexes: []int{2},
		},
	}
	indexed := indexOutputs(result)
	if len(indexed) != 2 {
		t.Fatalf("indexed = %+v", indexed)
	}
	if indexed[0].index != 1 || indexed[1].index != 3 {
		t.Fatalf("ordinals = %d, %d; want 1, 3", indexed[0].index, indexed[1].index)
	}
}

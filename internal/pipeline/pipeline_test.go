package pipeline

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"cvcutter/internal/config"
	"cvcutter/internal/services/ffmpeg"
	"cvcutter/internal/tracking"
)

const testRate = 500

// noise generates a deterministic pseudo-noise signal with sharp
// autocorrelation.
func noise(n int, seed uint64) []float64 {
	out := make([]float64, n)
	state := seed
	for i := range out {
		state = state*6364136223846793005 + 1442695040888963407
		out[i] = float64(int64(state>>33))/float64(1<<30) - 1
	}
	return out
}

// fakeClient is an in-memory transcoder: PCM comes from scripted tracks and
// encodes are recorded instead of executed.
type fakeClient struct {
	camera []float64
	mic    []float64
	micErr error

	concatCalls [][]string
	concatOut   string
	specs       []ffmpeg.EncodeSpec
}

func (f *fakeClient) ExtractPCM(_ context.Context, input string, start, duration float64, sampleRate int) ([]float64, error) {
	track := f.camera
	if strings.Contains(input, "mic") {
		if f.micErr != nil {
			return nil, f.micErr
		}
		track = f.mic
	}
	from := int(start * float64(sampleRate))
	if from > len(track) {
		from = len(track)
	}
	if duration <= 0 {
		return append([]float64(nil), track[from:]...), nil
	}
	to := from + int(duration*float64(sampleRate))
	if to > len(track) {
		to = len(track)
	}
	return append([]float64(nil), track[from:to]...), nil
}

func (f *fakeClient) EncodeSegment(_ context.Context, spec ffmpeg.EncodeSpec, progress func(ffmpeg.ProgressUpdate)) error {
	f.specs = append(f.specs, spec)
	return nil
}

func (f *fakeClient) Concat(_ context.Context, inputs []string, output string) error {
	f.concatCalls = append(f.concatCalls, inputs)
	f.concatOut = output
	return nil
}

func (f *fakeClient) Duration(context.Context, string) (float64, error) { return 0, nil }

// fakeSource replays scripted frames at a fixed geometry.
type fakeSource struct {
	frames [][]tracking.Entity
	pos    int
}

func (f *fakeSource) Next() ([]tracking.Entity, bool, error) {
	if f.pos >= len(f.frames) {
		return nil, false, nil
	}
	entities := f.frames[f.pos]
	f.pos++
	return entities, true, nil
}

func (f *fakeSource) FrameSize() (int, int) { return 1000, 1080 }
func (f *fakeSource) FrameRate() float64    { return 10 }
func (f *fakeSource) Close() error          { return nil }

func onStage() []tracking.Entity {
	return []tracking.Entity{{ID: 1, Box: tracking.Rect{X1: 490, Y1: 0, X2: 510, Y2: 100}}}
}

// scriptedFrames produces one performance from start to end seconds at
// 10 fps, within total seconds of footage.
func scriptedFrames(total, start, end float64) [][]tracking.Entity {
	frames := make([][]tracking.Entity, int(total*10))
	for i := range frames {
		at := float64(i) / 10
		if at >= start && at < end {
			frames[i] = onStage()
		}
	}
	return frames
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.TempDir = t.TempDir()
	cfg.Detection.MinDurationSeconds = 2
	cfg.Sync.SampleRate = testRate
	cfg.Sync.ToleranceSeconds = 1
	cfg.Sync.MinCorrelation = 0.5
	cfg.Encoding.UseGPU = false
	return &cfg
}

func newTestPipeline(t *testing.T, cfg *config.Config, client ffmpeg.Client, frames [][]tracking.Entity) *Pipeline {
	t.Helper()
	p := New(cfg, client, nil)
	p.openSource = func(tracking.VideoConfig) (tracking.Source, error) {
		return &fakeSource{frames: frames}, nil
	}
	p.probeCodec = func(context.Context, bool) ffmpeg.CodecSelection {
		return ffmpeg.CodecSelection{VideoCodec: "libx264", ExtraArgs: []string{"-preset", "medium"}}
	}
	return p
}

func TestRunSingleVideoWithoutMic(t *testing.T) {
	cfg := testConfig(t)
	client := &fakeClient{}
	p := newTestPipeline(t, cfg, client, scriptedFrames(20, 3, 15))

	result, err := p.Run(context.Background(), Request{VideoPaths: []string{"/footage/show.mts"}}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.concatCalls) != 0 {
		t.Fatal("single input must not be concatenated")
	}
	if result.VideoPath != "/footage/show.mts" {
		t.Fatalf("video path = %s", result.VideoPath)
	}
	if len(result.Intervals) != 1 {
		t.Fatalf("intervals = %v", result.Intervals)
	}
	if result.UsedMic {
		t.Fatal("no mic was provided")
	}
	if len(client.specs) != 1 {
		t.Fatalf("encodes = %d, want 1", len(client.specs))
	}
	spec := client.specs[0]
	if spec.MicPath != "" {
		t.Fatal("camera-only run must not reference a mic track")
	}
	if filepath.Base(spec.Output) != "show_performance_1.mp4" {
		t.Fatalf("output = %s", spec.Output)
	}
	if filepath.Dir(spec.Output) != cfg.Paths.OutputDir {
		t.Fatalf("output dir = %s", filepath.Dir(spec.Output))
	}
}

func TestRunConcatenatesMultiPartRecordings(t *testing.T) {
	cfg := testConfig(t)
	client := &fakeClient{}
	p := newTestPipeline(t, cfg, client, scriptedFrames(20, 3, 15))

	var opened string
	p.openSource = func(vc tracking.VideoConfig) (tracking.Source, error) {
		opened = vc.VideoPath
		return &fakeSource{frames: scriptedFrames(20, 3, 15)}, nil
	}

	parts := []string{"/footage/show_part1.mts", "/footage/show_part2.mts"}
	result, err := p.Run(context.Background(), Request{VideoPaths: parts}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.concatCalls) != 1 || len(client.concatCalls[0]) != 2 {
		t.Fatalf("concat calls = %v", client.concatCalls)
	}
	want := filepath.Join(cfg.Paths.TempDir, "show_part1_combined.mp4")
	if client.concatOut != want {
		t.Fatalf("concat output = %s, want %s", client.concatOut, want)
	}
	if opened != want {
		t.Fatalf("detection ran on %s, want the combined file", opened)
	}
	if result.VideoPath != want {
		t.Fatalf("result video = %s", result.VideoPath)
	}
}

func TestRunAlignsMicAndShiftsSegmentStarts(t *testing.T) {
	cfg := testConfig(t)

	// The mic recorder started 2 seconds before the camera: the camera's
	// audio appears 2 seconds into the mic track.
	camera := noise(20*testRate, 7)
	mic := append(make([]float64, 2*testRate), camera...)
	client := &fakeClient{camera: camera, mic: mic}

	p := newTestPipeline(t, cfg, client, scriptedFrames(20, 3, 15))

	result, err := p.Run(context.Background(), Request{
		VideoPaths: []string{"/footage/show.mts"},
		MicPath:    "/footage/mic.wav",
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.UsedMic {
		t.Fatal("expected a usable consensus offset")
	}
	if math.Abs(result.GlobalOffset-2.0) > 0.05 {
		t.Fatalf("offset = %v, want ~2.0", result.GlobalOffset)
	}
	if len(client.specs) != 1 {
		t.Fatalf("encodes = %d", len(client.specs))
	}
	spec := client.specs[0]
	if spec.MicPath != "/footage/mic.wav" {
		t.Fatalf("mic path = %q", spec.MicPath)
	}
	if math.Abs(spec.MicStart-(3.0+result.GlobalOffset)) > 0.05 {
		t.Fatalf("mic start = %v, want interval start plus offset", spec.MicStart)
	}
}

func TestRunFallsBackToCameraAudioWithoutConsensus(t *testing.T) {
	cfg := testConfig(t)

	// A mic track unrelated to the camera audio never correlates.
	client := &fakeClient{
		camera: noise(20*testRate, 7),
		mic:    noise(22*testRate, 99),
	}
	p := newTestPipeline(t, cfg, client, scriptedFrames(20, 3, 15))

	result, err := p.Run(context.Background(), Request{
		VideoPaths: []string{"/footage/show.mts"},
		MicPath:    "/footage/mic.wav",
	}, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.UsedMic {
		t.Fatal("uncorrelated mic must not be mixed")
	}
	if len(client.specs) != 1 || client.specs[0].MicPath != "" {
		t.Fatalf("specs = %+v", client.specs)
	}
}

func TestRunMicDecodeFailureFallsBackToCameraAudio(t *testing.T) {
	cfg := testConfig(t)
	client := &fakeClient{
		camera: noise(20*testRate, 7),
		micErr: errors.New("invalid data found when processing input"),
	}
	p := newTestPipeline(t, cfg, client, scriptedFrames(20, 3, 15))

	result, err := p.Run(context.Background(), Request{
		VideoPaths: []string{"/footage/show.mts"},
		MicPath:    "/footage/mic.wav",
	}, nil)
	if err != nil {
		t.Fatalf("undecodable mic track must not abort the run: %v", err)
	}
	if result.UsedMic {
		t.Fatal("undecodable mic must not be mixed")
	}
	if len(client.specs) != 1 || client.specs[0].MicPath != "" {
		t.Fatalf("specs = %+v", client.specs)
	}
}

func TestRunNoPerformancesIsNotAnError(t *testing.T) {
	cfg := testConfig(t)
	client := &fakeClient{}
	p := newTestPipeline(t, cfg, client, scriptedFrames(20, 0, 0))

	var stages []string
	result, err := p.Run(context.Background(), Request{VideoPaths: []string{"/footage/show.mts"}},
		func(stage, _ string) { stages = append(stages, stage) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Intervals) != 0 || len(client.specs) != 0 {
		t.Fatalf("empty footage produced work: %+v", result)
	}
	for _, stage := range stages {
		if stage == "encode" {
			t.Fatal("encode stage must not run without intervals")
		}
	}
}

func TestRunRejectsEmptyRequest(t *testing.T) {
	p := newTestPipeline(t, testConfig(t), &fakeClient{}, nil)
	if _, err := p.Run(context.Background(), Request{}, nil); err == nil {
		t.Fatal("expected error for empty input list")
	}
}

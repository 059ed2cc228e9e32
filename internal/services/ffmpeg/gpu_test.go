package ffmpeg

import (
	"context"
	"os"
	"os/exec"
	"testing"
)

func TestProbeCodecSelectsHardwareWhenProbePasses(t *testing.T) {
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if name != "nvidia-smi" {
			t.Fatalf("unexpected probe command %q", name)
		}
		return exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
	}
	t.Cleanup(func() { commandContext = original })

	selection := ProbeCodec(context.Background(), true)
	if !selection.Hardware || selection.VideoCodec != "h264_nvenc" {
		t.Fatalf("expected hardware selection, got %+v", selection)
	}
}

func TestProbeCodecFallsBackToSoftware(t *testing.T) {
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/nonexistent/nvidia-smi")
	}
	t.Cleanup(func() { commandContext = original })

	selection := ProbeCodec(context.Background(), true)
	if selection.Hardware || selection.VideoCodec != "libx264" {
		t.Fatalf("expected software fallback, got %+v", selection)
	}
}

func TestProbeCodecSkipsProbeWhenGPUDisabled(t *testing.T) {
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		t.Fatal("probe must not run when GPU use is disabled")
		return nil
	}
	t.Cleanup(func() { commandContext = original })

	selection := ProbeCodec(context.Background(), false)
	if selection.Hardware {
		t.Fatalf("expected software selection, got %+v", selection)
	}
}

package ffmpeg

import "context"

// CodecSelection is the per-run codec decision applied to every segment.
type CodecSelection struct {
	VideoCodec string
	ExtraArgs  []string
	Hardware   bool
}

// ProbeCodec checks for NVIDIA hardware once and returns the encoder profile
// to use for the whole run. The probe is the nvidia-smi exit code alone; no
// finer capability negotiation is attempted.
func ProbeCodec(ctx context.Context, useGPU bool) CodecSelection {
	if useGPU && hasNvidiaGPU(ctx) {
		return CodecSelection{
			VideoCodec: "h264_nvenc",
			ExtraArgs:  []string{"-preset", "p4", "-tune", "hq"},
			Hardware:   true,
		}
	}
	return CodecSelection{
		VideoCodec: "libx264",
		ExtraArgs:  []string{"-preset", "medium"},
	}
}

func hasNvidiaGPU(ctx context.Context) bool {
	cmd := commandContext(ctx, "nvidia-smi")
	return cmd.Run() == nil
}

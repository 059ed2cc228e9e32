package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"cvcutter/internal/services"
)

var commandContext = exec.CommandContext

// ProgressUpdate is one structured progress event from a running transcode.
type ProgressUpdate struct {
	Seconds float64
	Total   float64
	Message string
}

// EncodeSpec describes a single segment transcode.
type EncodeSpec struct {
	Input    string
	Start    float64
	Duration float64
	// MicPath, when set, is mixed with the camera audio starting at MicStart
	// seconds into the microphone recording.
	MicPath     string
	MicStart    float64
	VideoVolume float64
	MicVolume   float64
	// VideoCodec plus CodecArgs come from the per-run codec selection.
	VideoCodec   string
	CodecArgs    []string
	AudioBitrate string
	Deinterlace  bool
	Output       string
}

// Client defines the transcoder behaviour the pipeline depends on.
type Client interface {
	// ExtractPCM decodes mono PCM samples in [-1, 1] at the given sample
	// rate. A non-positive duration decodes to the end of the stream.
	ExtractPCM(ctx context.Context, input string, start, duration float64, sampleRate int) ([]float64, error)
	// EncodeSegment runs one transcode, streaming progress events.
	EncodeSegment(ctx context.Context, spec EncodeSpec, progress func(ProgressUpdate)) error
	// Concat joins inputs onto one continuous timeline.
	Concat(ctx context.Context, inputs []string, output string) error
	// Duration probes a media file's duration in seconds.
	Duration(ctx context.Context, path string) (float64, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinaries overrides the default executable names.
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(c *CLI) {
		if ffmpeg != "" {
			c.ffmpeg = ffmpeg
		}
		if ffprobe != "" {
			c.ffprobe = ffprobe
		}
	}
}

// CLI wraps the ffmpeg and ffprobe command-line tools.
type CLI struct {
	ffmpeg  string
	ffprobe string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

func (c *CLI) ExtractPCM(ctx context.Context, input string, start, duration float64, sampleRate int) ([]float64, error) {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if start > 0 {
		args = append(args, "-ss", formatSeconds(start))
	}
	args = append(args, "-i", input)
	if duration > 0 {
		args = append(args, "-t", formatSeconds(duration))
	}
	args = append(args,
		"-vn",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "1",
		"pipe:1",
	)

	cmd := commandContext(ctx, c.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "ffmpeg", "extract pcm",
			strings.TrimSpace(stderr.String()), err)
	}

	if len(out)%2 != 0 {
		out = out[:len(out)-1]
	}
	samples := make([]float64, len(out)/2)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(out[i*2:i*2+2]))) / 32768.0
	}
	return samples, nil
}

func (c *CLI) EncodeSegment(ctx context.Context, spec EncodeSpec, progress func(ProgressUpdate)) error {
	args := buildEncodeArgs(spec)

	cmd := commandContext(ctx, c.ffmpeg, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "start encode", spec.Output, err)
	}

	var tail lineTail
	scanner := bufio.NewScanner(stderr)
	scanner.Split(scanCarriageLines)
	for scanner.Scan() {
		line := scanner.Text()
		tail.record(line)
		if seconds, ok := parseProgressTimestamp(line); ok && progress != nil {
			progress(ProgressUpdate{
				Seconds: seconds,
				Total:   spec.Duration,
				Message: fmt.Sprintf("Encoding: %.2f / %.2f s", seconds, spec.Duration),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "read encode output", spec.Output, err)
	}

	if err := cmd.Wait(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "encode segment", tail.String(), err)
	}
	return nil
}

// buildEncodeArgs assembles the full ffmpeg argument list for one segment.
// Factored out so the argument surface stays testable without a process.
func buildEncodeArgs(spec EncodeSpec) []string {
	args := []string{"-y", "-hide_banner",
		"-ss", formatSeconds(spec.Start),
		"-i", spec.Input,
	}

	mixed := spec.MicPath != ""
	if mixed {
		args = append(args, "-ss", formatSeconds(spec.MicStart), "-i", spec.MicPath)
	}

	args = append(args, "-t", formatSeconds(spec.Duration))

	if mixed {
		filter := fmt.Sprintf("[0:a]volume=%s[a0];[1:a]volume=%s[a1];[a0][a1]amix=inputs=2[aout]",
			formatVolume(spec.VideoVolume), formatVolume(spec.MicVolume))
		args = append(args, "-filter_complex", filter, "-map", "0:v", "-map", "[aout]")
	} else {
		args = append(args, "-map", "0:v", "-map", "0:a")
	}

	if spec.Deinterlace {
		args = append(args, "-vf", "yadif")
	}

	args = append(args, "-c:v", spec.VideoCodec)
	args = append(args, spec.CodecArgs...)
	args = append(args, "-c:a", "aac", "-b:a", spec.AudioBitrate, spec.Output)
	return args
}

func (c *CLI) Duration(ctx context.Context, path string) (float64, error) {
	cmd := commandContext(ctx, c.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "probe duration", path, err)
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "parse duration", strings.TrimSpace(string(out)), err)
	}
	return value, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// lineTail keeps the last few stderr lines so encode failures carry context.
type lineTail struct {
	lines []string
}

func (t *lineTail) record(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.lines = append(t.lines, line)
	if len(t.lines) > 5 {
		t.lines = t.lines[len(t.lines)-5:]
	}
}

func (t *lineTail) String() string {
	return strings.Join(t.lines, " | ")
}

var _ Client = (*CLI)(nil)

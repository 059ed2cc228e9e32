package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cvcutter/internal/services"
)

// Concat joins inputs into one file on a continuous timeline. The primary
// path re-encodes through the concat filter, which resets every input's
// timestamps; interval timestamps produced downstream are only meaningful
// against such a timeline. When re-encoding fails, Concat falls back to the
// stream-copy concat demuxer, which is fast but requires every input to share
// identical codec parameters.
func (c *CLI) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "concat", "no inputs", nil)
	}
	if len(inputs) == 1 {
		return copySingle(inputs[0], output)
	}

	if err := c.concatFilter(ctx, inputs, output); err == nil {
		return nil
	}
	return c.concatDemuxer(ctx, inputs, output)
}

func (c *CLI) concatFilter(ctx context.Context, inputs []string, output string) error {
	args := []string{"-y", "-hide_banner"}
	var filter strings.Builder
	for i, input := range inputs {
		args = append(args, "-i", input)
		fmt.Fprintf(&filter, "[%d:v][%d:a]", i, i)
	}
	fmt.Fprintf(&filter, "concat=n=%d:v=1:a=1[v][a]", len(inputs))

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[v]", "-map", "[a]",
		output,
	)

	cmd := commandContext(ctx, c.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat filter",
			lastLine(stderr.String()), err)
	}
	return nil
}

func (c *CLI) concatDemuxer(ctx context.Context, inputs []string, output string) error {
	listFile, err := writeConcatList(inputs, filepath.Dir(output))
	if err != nil {
		return err
	}
	defer os.Remove(listFile)

	cmd := commandContext(ctx, c.ffmpeg,
		"-y", "-hide_banner",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		output,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "concat demuxer",
			lastLine(stderr.String()), err)
	}
	return nil
}

func writeConcatList(inputs []string, dir string) (string, error) {
	file, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	defer file.Close()

	for _, input := range inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			os.Remove(file.Name())
			return "", fmt.Errorf("resolve concat input %q: %w", input, err)
		}
		// The concat demuxer list format wants single quotes escaped.
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		if _, err := fmt.Fprintf(file, "file '%s'\n", escaped); err != nil {
			os.Remove(file.Name())
			return "", fmt.Errorf("write concat list: %w", err)
		}
	}
	return file.Name(), nil
}

func copySingle(input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "ffmpeg", "concat", input, err)
	}
	defer in.Close()

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %q: %w", output, err)
	}
	defer out.Close()

	if _, err := out.ReadFrom(in); err != nil {
		return fmt.Errorf("copy %q: %w", input, err)
	}
	return out.Close()
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

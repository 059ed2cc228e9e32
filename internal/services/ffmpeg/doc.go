// Package ffmpeg wraps the ffmpeg and ffprobe command-line tools behind a
// Client interface so the pipeline can cut, mix, and probe media with typed
// progress events instead of scraping process output in orchestration code.
//
// It also owns the hardware codec probe and the two-stage concatenation used
// to put multi-segment recordings onto one continuous timeline.
package ffmpeg

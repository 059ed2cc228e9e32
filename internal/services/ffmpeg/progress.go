package ffmpeg

import (
	"bytes"
	"regexp"
	"strconv"
)

// ffmpeg reports elapsed encoded time on stderr as time=HH:MM:SS.ff,
// rewriting the same line with carriage returns.
var progressTimeRe = regexp.MustCompile(`time=(\d{2}):(\d{2}):(\d{2})\.(\d{2})`)

// parseProgressTimestamp extracts the encoded-time position from one stderr
// line. ok is false for lines without a progress timestamp.
func parseProgressTimestamp(line string) (seconds float64, ok bool) {
	match := progressTimeRe.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	secs, _ := strconv.Atoi(match[3])
	centis, _ := strconv.Atoi(match[4])
	return float64(hours)*3600 + float64(minutes)*60 + float64(secs) + float64(centis)/100, true
}

// scanCarriageLines is a bufio.SplitFunc that treats both \n and \r as line
// terminators, so in-place progress updates surface as individual lines.
func scanCarriageLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

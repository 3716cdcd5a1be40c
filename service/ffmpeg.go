package service

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// AudioSegmenter probes and cuts audio assets. The ffmpeg implementation
// below is the production one; tests inject fakes.
type AudioSegmenter interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
	Extract(ctx context.Context, inputPath string, start, length time.Duration, outputPath string) error
}

type ffmpegSegmenter struct{}

func NewFFmpegSegmenter() AudioSegmenter {
	return ffmpegSegmenter{}
}

func (ffmpegSegmenter) Duration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(output))
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration %q: %w", string(output), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Extract cuts [start, start+length) out of inputPath and transcodes it to
// mono 16 kHz low-bitrate mp3 to keep the segment under the provider's
// size ceiling.
func (ffmpegSegmenter) Extract(ctx context.Context, inputPath string, start, length time.Duration, outputPath string) error {
	ffmpegArgs := []string{
		"-y",
		"-i", inputPath,
		"-ss", fmt.Sprintf("%.3f", start.Seconds()),
		"-t", fmt.Sprintf("%.3f", length.Seconds()),
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-b:a", "48k",
		"-f", "mp3",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg segment extraction failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

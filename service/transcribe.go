package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"worker-transcript/config"
)

const (
	defaultSegmentLength   = 10 * time.Minute
	defaultMaxSegmentBytes = 20 * 1024 * 1024
)

// SpeechToText is the external transcription provider boundary.
type SpeechToText interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// AudioTranscriber turns an audio file into a full transcript.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// SegmentedTranscriber splits audio into fixed-length segments, transcribes
// each sequentially and joins the texts in chronological order. Any
// segment failure fails the whole operation so the transcript is never
// silently truncated.
type SegmentedTranscriber struct {
	segmenter       AudioSegmenter
	stt             SpeechToText
	segmentLength   time.Duration
	maxSegmentBytes int64
}

func NewSegmentedTranscriber(segmenter AudioSegmenter, stt SpeechToText, cfg config.Pipeline) *SegmentedTranscriber {
	segmentLength := time.Duration(cfg.SegmentSeconds) * time.Second
	if segmentLength <= 0 {
		segmentLength = defaultSegmentLength
	}
	maxSegmentBytes := int64(cfg.MaxSegmentMB) * 1024 * 1024
	if maxSegmentBytes <= 0 {
		maxSegmentBytes = defaultMaxSegmentBytes
	}
	return &SegmentedTranscriber{
		segmenter:       segmenter,
		stt:             stt,
		segmentLength:   segmentLength,
		maxSegmentBytes: maxSegmentBytes,
	}
}

func (t *SegmentedTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	duration, err := t.segmenter.Duration(ctx, audioPath)
	if err != nil {
		return "", err
	}
	if duration <= 0 {
		return "", fmt.Errorf("audio %s has no duration", audioPath)
	}

	totalSegments := int(math.Ceil(duration.Seconds() / t.segmentLength.Seconds()))
	zerolog.Ctx(ctx).Info().
		Str("audio_path", audioPath).
		Dur("duration", duration).
		Int("total_segments", totalSegments).
		Msg("starting segmented transcription")

	transcripts := make([]string, 0, totalSegments)
	for i := 0; i < totalSegments; i++ {
		start := time.Duration(i) * t.segmentLength
		length := t.segmentLength
		if remaining := duration - start; remaining < length {
			length = remaining
		}

		segmentPath := fmt.Sprintf("%s_segment_%d.mp3", audioPath, i)
		text, err := t.transcribeSegment(ctx, audioPath, segmentPath, start, length)
		if err != nil {
			return "", fmt.Errorf("segment %d/%d: %w", i+1, totalSegments, err)
		}

		zerolog.Ctx(ctx).Info().
			Int("segment", i+1).
			Int("total_segments", totalSegments).
			Msg("segment transcribed")
		transcripts = append(transcripts, text)
	}

	return strings.Join(transcripts, " "), nil
}

func (t *SegmentedTranscriber) transcribeSegment(ctx context.Context, audioPath, segmentPath string, start, length time.Duration) (string, error) {
	// the transcoded segment is removed on every exit path
	defer os.Remove(segmentPath)

	if err := t.segmenter.Extract(ctx, audioPath, start, length, segmentPath); err != nil {
		return "", err
	}

	info, err := os.Stat(segmentPath)
	if err != nil {
		return "", err
	}
	if info.Size() > t.maxSegmentBytes {
		return "", errors.Join(ErrSegmentTooLarge,
			fmt.Errorf("segment is %.2fMB after transcoding, limit is %dMB",
				float64(info.Size())/(1024*1024), t.maxSegmentBytes/(1024*1024)))
	}

	text, err := t.stt.Transcribe(ctx, segmentPath)
	if err != nil {
		return "", errors.Join(ErrProviderFailure, err)
	}
	return text, nil
}

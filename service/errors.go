package service

import "errors"

var (
	// ErrNonRetryable marks failures the consumer must not redeliver.
	ErrNonRetryable = errors.New("non-retryable error")

	// ErrProviderFailure wraps failed transcription, embedding or
	// summarization provider calls.
	ErrProviderFailure = errors.New("provider failure")

	// ErrSegmentTooLarge means an audio segment stayed over the provider
	// size ceiling after transcoding. Fatal, never retried.
	ErrSegmentTooLarge = errors.New("segment exceeds provider size limit")

	// ErrDimensionMismatch means chunk embeddings of different lengths
	// were fed to the selector, which indicates corrupted chunk data.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmptySelection means a long transcript has no chunks to select
	// from, so no summarization input can be assembled.
	ErrEmptySelection = errors.New("no transcript chunks available")
)

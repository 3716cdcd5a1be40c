package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"
	"worker-transcript/config"
	"worker-transcript/constant"
	"worker-transcript/dto"
	"worker-transcript/entities"
	"worker-transcript/pkg/textchunk"
	"worker-transcript/pkg/tokencount"
	"worker-transcript/pkg/youtube"
	"worker-transcript/repository"
)

// Embedder is the external embedding provider boundary.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TranscriptFetcher is the external transcript provider boundary for
// video assets.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoId string) ([]youtube.TimedText, error)
}

type Service interface {
	Process(ctx context.Context, message dto.TranscriptJobMessage) error
}

type service struct {
	repo        repository.AssetRepository
	cfg         *config.Config
	store       ObjectStore
	fetcher     TranscriptFetcher
	transcriber AudioTranscriber
	embedder    Embedder
	counter     tokencount.Counter
	chunker     textchunk.Chunker
}

func NewService(
	repo repository.AssetRepository,
	cfg *config.Config,
	store ObjectStore,
	fetcher TranscriptFetcher,
	transcriber AudioTranscriber,
	embedder Embedder,
	counter tokencount.Counter,
) Service {
	return &service{
		repo:        repo,
		cfg:         cfg,
		store:       store,
		fetcher:     fetcher,
		transcriber: transcriber,
		embedder:    embedder,
		counter:     counter,
		chunker: textchunk.Chunker{
			Counter:   counter,
			MaxTokens: cfg.Pipeline.ChunkMaxTokens,
		},
	}
}

// Process runs one asset's pipeline to a terminal state. Failures before
// the claim bubble up so the consumer retries them; once the asset is
// claimed every failure becomes the asset's terminal error state.
func (s *service) Process(ctx context.Context, message dto.TranscriptJobMessage) (err error) {
	zerolog.Ctx(ctx).Info().
		Str("asset_id", message.AssetId.String()).
		Str("asset_type", string(message.AssetType)).
		Msg("processing transcript job")

	asset, err := s.repo.FindAssetById(ctx, message.AssetId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to find asset by id")
		return err
	}

	if asset.Status != constant.AssetStatusPending {
		zerolog.Ctx(ctx).Info().Str("asset_id", message.AssetId.String()).Msg("asset is not pending")
		return nil
	}

	claimed, err := s.repo.ClaimAsset(ctx, message.AssetId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to claim asset")
		return err
	}
	if !claimed {
		zerolog.Ctx(ctx).Info().Str("asset_id", message.AssetId.String()).Msg("asset claimed by another pipeline")
		return nil
	}

	defer func() {
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("asset_id", message.AssetId.String()).Msg("pipeline failed")
			if failErr := s.repo.FailAsset(ctx, message.AssetId, err.Error()); failErr != nil {
				zerolog.Ctx(ctx).Error().Err(failErr).Msg("failed to record asset failure")
			}
			// the failure is recorded as terminal state, the message
			// must not be redelivered
			err = nil
		}
	}()

	var transcript string
	switch asset.Type {
	case constant.AssetTypeVideo:
		transcript, err = s.fetchVideoTranscript(ctx, asset)
	case constant.AssetTypeAudio:
		transcript, err = s.transcribeAudio(ctx, asset)
	default:
		err = errors.Join(ErrNonRetryable, fmt.Errorf("unknown asset type %q", asset.Type))
	}
	if err != nil {
		return err
	}

	chunks, err := s.buildChunks(ctx, transcript)
	if err != nil {
		return err
	}

	if err = s.repo.CompleteAssetWithChunks(ctx, message.AssetId, transcript, chunks); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to complete asset")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("asset_id", message.AssetId.String()).
		Int("chunk_count", len(chunks)).
		Msg("transcript job completed")

	return nil
}

func (s *service) fetchVideoTranscript(ctx context.Context, asset *entities.Asset) (string, error) {
	zerolog.Ctx(ctx).Info().Str("source_id", asset.SourceId).Msg("fetching video transcript")
	segments, err := s.fetcher.Fetch(ctx, asset.SourceId)
	if err != nil {
		return "", errors.Join(ErrProviderFailure, err)
	}
	return youtube.JoinSegments(segments), nil
}

func (s *service) transcribeAudio(ctx context.Context, asset *entities.Asset) (string, error) {
	if asset.ObjectPath == nil {
		return "", fmt.Errorf("audio asset %s has no object path", asset.ID)
	}
	objectPath := *asset.ObjectPath

	tempDir := filepath.Join("temp", asset.ID.String())
	defer os.RemoveAll(tempDir)

	// the uploaded original is removed once this pipeline reaches a
	// terminal state, no matter which stage failed
	defer func() {
		if remErr := s.store.Remove(ctx, s.cfg.MinIOBucket, objectPath); remErr != nil {
			zerolog.Ctx(ctx).Warn().Err(remErr).Str("object_path", objectPath).Msg("failed to remove uploaded original")
		}
	}()

	if err := os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return "", err
	}

	localPath := filepath.Join(tempDir, filepath.Base(objectPath))
	zerolog.Ctx(ctx).Info().Str("object_path", objectPath).Str("local_path", localPath).Msg("downloading uploaded audio")
	if err := s.store.Download(ctx, s.cfg.MinIOBucket, objectPath, localPath); err != nil {
		return "", err
	}

	return s.transcriber.Transcribe(ctx, localPath)
}

// buildChunks chunks and embeds the transcript when it exceeds the
// chunking threshold; shorter transcripts get no chunks at all.
func (s *service) buildChunks(ctx context.Context, transcript string) ([]*entities.TranscriptChunk, error) {
	tokenCount, err := s.counter.Count(transcript)
	if err != nil {
		return nil, err
	}
	if tokenCount <= s.cfg.Pipeline.ChunkThreshold {
		return nil, nil
	}

	zerolog.Ctx(ctx).Info().Int("token_count", tokenCount).Msg("transcript exceeds chunking threshold, creating chunks")
	texts, err := s.chunker.Chunk(transcript)
	if err != nil {
		return nil, err
	}

	chunks := make([]*entities.TranscriptChunk, 0, len(texts))
	for i, text := range texts {
		embedding, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, errors.Join(ErrProviderFailure, err)
		}
		if dim := s.cfg.Pipeline.EmbeddingDimension; dim > 0 && len(embedding) != dim {
			return nil, errors.Join(ErrDimensionMismatch,
				fmt.Errorf("provider returned dimension %d, expected %d", len(embedding), dim))
		}
		chunks = append(chunks, &entities.TranscriptChunk{
			ChunkIndex: i,
			ChunkText:  text,
			Embedding:  pgvector.NewVector(embedding),
		})
	}
	return chunks, nil
}

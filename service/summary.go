package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"worker-transcript/config"
	"worker-transcript/constant"
	"worker-transcript/pkg/tokencount"
	"worker-transcript/repository"
)

// Summarizer is the external chat-completion provider boundary.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxTokens int) (string, error)
}

type SummaryResult struct {
	Status        constant.AssetStatus
	Summary       string
	FailureReason string
}

type SummaryService interface {
	SummarizeAsset(ctx context.Context, assetId uuid.UUID) (*SummaryResult, error)
}

type summaryService struct {
	repo       repository.AssetRepository
	cfg        *config.Config
	counter    tokencount.Counter
	selector   Selector
	summarizer Summarizer
}

func NewSummaryService(
	repo repository.AssetRepository,
	cfg *config.Config,
	counter tokencount.Counter,
	summarizer Summarizer,
) SummaryService {
	return &summaryService{
		repo:       repo,
		cfg:        cfg,
		counter:    counter,
		selector:   Selector{Counter: counter, Normalize: cfg.Pipeline.NormalizeScores},
		summarizer: summarizer,
	}
}

// SummarizeAsset reports an asset's status and, for completed assets,
// summarizes the transcript. Transcripts over the read budget go through
// the relevance selector first; a long transcript with no chunks is
// ErrEmptySelection, never an empty-text summarization.
func (s *summaryService) SummarizeAsset(ctx context.Context, assetId uuid.UUID) (*SummaryResult, error) {
	asset, err := s.repo.FindAssetById(ctx, assetId)
	if err != nil {
		return nil, err
	}

	if asset.Status != constant.AssetStatusCompleted {
		result := &SummaryResult{Status: asset.Status}
		if asset.FailureReason != nil {
			result.FailureReason = *asset.FailureReason
		}
		return result, nil
	}

	if asset.Transcript == nil {
		return nil, errors.New("completed asset has no transcript")
	}
	text := *asset.Transcript

	tokenCount, err := s.counter.Count(text)
	if err != nil {
		return nil, err
	}
	if tokenCount > s.cfg.Pipeline.SelectMaxTokens {
		zerolog.Ctx(ctx).Info().
			Str("asset_id", assetId.String()).
			Int("token_count", tokenCount).
			Msg("transcript over read budget, selecting chunks")

		chunks, err := s.repo.GetChunksByAssetId(ctx, assetId)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			return nil, ErrEmptySelection
		}

		text, err = s.selector.Select(chunks, s.cfg.Pipeline.SelectMaxTokens)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, ErrEmptySelection
		}
	}

	summary, err := s.summarizer.Summarize(ctx, text, s.cfg.Summarizer.MaxOutputTokens)
	if err != nil {
		return nil, errors.Join(ErrProviderFailure, err)
	}

	return &SummaryResult{Status: asset.Status, Summary: summary}, nil
}

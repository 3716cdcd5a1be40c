package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"
	"worker-transcript/constant"
	"worker-transcript/entities"
	"worker-transcript/pkg/tokencount"
	"worker-transcript/repository"
)

type fakeSummarizer struct {
	lastInput string
	err       error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string, maxTokens int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.lastInput = text
	return "This audio is about things.", nil
}

func completedAsset(transcript string) *entities.Asset {
	asset := audioAsset()
	asset.Status = constant.AssetStatusCompleted
	asset.Transcript = &transcript
	return asset
}

func TestSummarizeShortTranscriptDirect(t *testing.T) {
	asset := completedAsset("a short transcript")
	repo := newFakeRepo(asset)
	summarizer := &fakeSummarizer{}

	svc := NewSummaryService(repo, testConfig(), tokencount.Heuristic{}, summarizer)
	result, err := svc.SummarizeAsset(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("SummarizeAsset: %v", err)
	}
	if result.Summary == "" {
		t.Error("expected a summary")
	}
	if summarizer.lastInput != "a short transcript" {
		t.Errorf("summarizer input = %q, want the full transcript", summarizer.lastInput)
	}
}

func TestSummarizeLongTranscriptUsesSelector(t *testing.T) {
	// 30-token read budget in testConfig; this transcript is far over it
	transcript := strings.Repeat("many words in this transcript. ", 20)
	asset := completedAsset(transcript)
	repo := newFakeRepo(asset)
	repo.chunks[asset.ID] = []*entities.TranscriptChunk{
		{ChunkIndex: 0, ChunkText: "relevant chunk", Embedding: pgvector.NewVector([]float32{2, 2})},
		{ChunkIndex: 1, ChunkText: "other chunk", Embedding: pgvector.NewVector([]float32{1, 1})},
	}
	summarizer := &fakeSummarizer{}

	svc := NewSummaryService(repo, testConfig(), tokencount.Heuristic{}, summarizer)
	result, err := svc.SummarizeAsset(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("SummarizeAsset: %v", err)
	}
	if result.Summary == "" {
		t.Error("expected a summary")
	}
	if summarizer.lastInput == transcript {
		t.Error("summarizer received the raw transcript instead of the selection")
	}
	if !strings.HasPrefix(summarizer.lastInput, "relevant chunk") {
		t.Errorf("selection = %q", summarizer.lastInput)
	}
}

func TestSummarizeLongTranscriptNoChunks(t *testing.T) {
	transcript := strings.Repeat("many words in this transcript. ", 20)
	asset := completedAsset(transcript)
	repo := newFakeRepo(asset)

	svc := NewSummaryService(repo, testConfig(), tokencount.Heuristic{}, &fakeSummarizer{})
	_, err := svc.SummarizeAsset(context.Background(), asset.ID)
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestSummarizeNonCompletedAsset(t *testing.T) {
	asset := audioAsset()
	reason := "whisper http 500"
	asset.Status = constant.AssetStatusError
	asset.FailureReason = &reason
	repo := newFakeRepo(asset)

	svc := NewSummaryService(repo, testConfig(), tokencount.Heuristic{}, &fakeSummarizer{})
	result, err := svc.SummarizeAsset(context.Background(), asset.ID)
	if err != nil {
		t.Fatalf("SummarizeAsset: %v", err)
	}
	if result.Status != constant.AssetStatusError {
		t.Errorf("status = %s", result.Status)
	}
	if result.Summary != "" {
		t.Error("error assets must not get a summary")
	}
	if result.FailureReason != reason {
		t.Errorf("failure reason = %q", result.FailureReason)
	}
}

func TestSummarizeUnknownAsset(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSummaryService(repo, testConfig(), tokencount.Heuristic{}, &fakeSummarizer{})

	_, err := svc.SummarizeAsset(context.Background(), audioAsset().ID)
	if !errors.Is(err, repository.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestSummarizeProviderFailure(t *testing.T) {
	asset := completedAsset("short transcript")
	repo := newFakeRepo(asset)

	svc := NewSummaryService(repo, testConfig(), tokencount.Heuristic{}, &fakeSummarizer{err: errors.New("model unavailable")})
	_, err := svc.SummarizeAsset(context.Background(), asset.ID)
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure, got %v", err)
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"worker-transcript/config"
	"worker-transcript/constant"
	"worker-transcript/dto"
	"worker-transcript/entities"
	"worker-transcript/pkg/tokencount"
	"worker-transcript/pkg/youtube"
	"worker-transcript/repository"
)

type fakeRepo struct {
	assets    map[uuid.UUID]*entities.Asset
	chunks    map[uuid.UUID][]*entities.TranscriptChunk
	claimHits int
}

func newFakeRepo(assets ...*entities.Asset) *fakeRepo {
	r := &fakeRepo{
		assets: make(map[uuid.UUID]*entities.Asset),
		chunks: make(map[uuid.UUID][]*entities.TranscriptChunk),
	}
	for _, a := range assets {
		r.assets[a.ID] = a
	}
	return r
}

func (r *fakeRepo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return callback(ctx)
}

func (r *fakeRepo) GetDB() *gorm.DB { return nil }

func (r *fakeRepo) CreateAsset(ctx context.Context, asset *entities.Asset) error {
	r.assets[asset.ID] = asset
	return nil
}

func (r *fakeRepo) FindAssetById(ctx context.Context, id uuid.UUID) (*entities.Asset, error) {
	asset, ok := r.assets[id]
	if !ok {
		return nil, repository.ErrAssetNotFound
	}
	copied := *asset
	return &copied, nil
}

func (r *fakeRepo) FindAssetBySourceId(ctx context.Context, sourceId string) (*entities.Asset, error) {
	for _, asset := range r.assets {
		if asset.SourceId == sourceId {
			copied := *asset
			return &copied, nil
		}
	}
	return nil, repository.ErrAssetNotFound
}

func (r *fakeRepo) ClaimAsset(ctx context.Context, id uuid.UUID) (bool, error) {
	asset, ok := r.assets[id]
	if !ok {
		return false, repository.ErrAssetNotFound
	}
	if asset.Status != constant.AssetStatusPending {
		return false, nil
	}
	asset.Status = constant.AssetStatusProcessing
	r.claimHits++
	return true, nil
}

func (r *fakeRepo) FailAsset(ctx context.Context, id uuid.UUID, reason string) error {
	asset, ok := r.assets[id]
	if !ok || asset.Status != constant.AssetStatusProcessing {
		return repository.ErrAssetNotFound
	}
	asset.Status = constant.AssetStatusError
	asset.FailureReason = &reason
	return nil
}

func (r *fakeRepo) CompleteAssetWithChunks(ctx context.Context, id uuid.UUID, transcript string, chunks []*entities.TranscriptChunk) error {
	asset, ok := r.assets[id]
	if !ok || asset.Status != constant.AssetStatusProcessing {
		return repository.ErrAssetNotFound
	}
	asset.Status = constant.AssetStatusCompleted
	asset.Transcript = &transcript
	r.chunks[id] = chunks
	return nil
}

func (r *fakeRepo) GetChunksByAssetId(ctx context.Context, assetId uuid.UUID) ([]*entities.TranscriptChunk, error) {
	return r.chunks[assetId], nil
}

type fakeStore struct {
	content string
	removed []string
}

func (s *fakeStore) Download(ctx context.Context, bucket, objectPath, localPath string) error {
	return os.WriteFile(localPath, []byte(s.content), 0644)
}

func (s *fakeStore) Remove(ctx context.Context, bucket, objectPath string) error {
	s.removed = append(s.removed, objectPath)
	return nil
}

type fakeFetcher struct {
	segments []youtube.TimedText
	err      error
}

func (f *fakeFetcher) Fetch(ctx context.Context, videoId string) ([]youtube.TimedText, error) {
	return f.segments, f.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return f.text, f.err
}

type fakeEmbedder struct {
	dim   int
	calls int
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls++
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(f.calls)
	}
	return vec, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MinIOBucket: "test-bucket",
		Pipeline: config.Pipeline{
			ChunkMaxTokens:  10,
			ChunkThreshold:  20,
			SelectMaxTokens: 30,
			SegmentSeconds:  600,
			MaxSegmentMB:    20,
		},
	}
}

func videoAsset(status constant.AssetStatus) *entities.Asset {
	return &entities.Asset{
		ID:       uuid.New(),
		SourceId: "dQw4w9WgXcQ",
		Type:     constant.AssetTypeVideo,
		Status:   status,
	}
}

func audioAsset() *entities.Asset {
	objectPath := "audio/uploads/test.mp3"
	return &entities.Asset{
		ID:         uuid.New(),
		SourceId:   objectPath,
		ObjectPath: &objectPath,
		Type:       constant.AssetTypeAudio,
		Status:     constant.AssetStatusPending,
	}
}

func newPipeline(repo repository.AssetRepository, cfg *config.Config, store ObjectStore, fetcher TranscriptFetcher, transcriber AudioTranscriber, embedder Embedder) Service {
	return NewService(repo, cfg, store, fetcher, transcriber, embedder, tokencount.Heuristic{})
}

func TestProcessVideoShortTranscript(t *testing.T) {
	asset := videoAsset(constant.AssetStatusPending)
	repo := newFakeRepo(asset)
	fetcher := &fakeFetcher{segments: []youtube.TimedText{
		{Text: "hello"}, {Text: "world"},
	}}

	svc := newPipeline(repo, testConfig(), &fakeStore{}, fetcher, &fakeTranscriber{}, &fakeEmbedder{dim: 3})
	err := svc.Process(context.Background(), dto.TranscriptJobMessage{
		AssetId: asset.ID, AssetType: constant.AssetTypeVideo, SourceId: asset.SourceId,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	stored := repo.assets[asset.ID]
	if stored.Status != constant.AssetStatusCompleted {
		t.Errorf("status = %s", stored.Status)
	}
	if stored.Transcript == nil || *stored.Transcript != "hello world" {
		t.Errorf("transcript = %v", stored.Transcript)
	}
	if len(repo.chunks[asset.ID]) != 0 {
		t.Errorf("short transcript must not produce chunks, got %d", len(repo.chunks[asset.ID]))
	}
}

func TestProcessAudioLongTranscriptCreatesChunks(t *testing.T) {
	asset := audioAsset()
	repo := newFakeRepo(asset)
	store := &fakeStore{content: "audio bytes"}
	// well over the 20-token threshold with the len/4 heuristic
	longText := strings.TrimSpace(strings.Repeat("This is a transcribed sentence. ", 20))
	embedder := &fakeEmbedder{dim: 3}

	svc := newPipeline(repo, testConfig(), store, &fakeFetcher{}, &fakeTranscriber{text: longText}, embedder)
	err := svc.Process(context.Background(), dto.TranscriptJobMessage{
		AssetId: asset.ID, AssetType: constant.AssetTypeAudio, SourceId: asset.SourceId, ObjectPath: *asset.ObjectPath,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	stored := repo.assets[asset.ID]
	if stored.Status != constant.AssetStatusCompleted {
		t.Fatalf("status = %s", stored.Status)
	}

	chunks := repo.chunks[asset.ID]
	if len(chunks) == 0 {
		t.Fatal("long transcript must produce chunks")
	}
	dim := len(chunks[0].Embedding.Slice())
	for i, chunk := range chunks {
		if chunk.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, chunk.ChunkIndex)
		}
		if len(chunk.Embedding.Slice()) != dim {
			t.Errorf("chunk %d embedding dimension %d, want %d", i, len(chunk.Embedding.Slice()), dim)
		}
	}
	if embedder.calls != len(chunks) {
		t.Errorf("embedder called %d times for %d chunks", embedder.calls, len(chunks))
	}

	// uploaded original removed at terminal state
	if len(store.removed) != 1 || store.removed[0] != *asset.ObjectPath {
		t.Errorf("removed objects = %v", store.removed)
	}
}

func TestProcessFailureIsTerminal(t *testing.T) {
	asset := videoAsset(constant.AssetStatusPending)
	repo := newFakeRepo(asset)
	fetcher := &fakeFetcher{err: errors.New("captions unavailable")}

	svc := newPipeline(repo, testConfig(), &fakeStore{}, fetcher, &fakeTranscriber{}, &fakeEmbedder{dim: 3})
	err := svc.Process(context.Background(), dto.TranscriptJobMessage{
		AssetId: asset.ID, AssetType: constant.AssetTypeVideo, SourceId: asset.SourceId,
	})
	if err != nil {
		t.Fatalf("post-claim failures must not be returned for retry, got %v", err)
	}

	stored := repo.assets[asset.ID]
	if stored.Status != constant.AssetStatusError {
		t.Errorf("status = %s", stored.Status)
	}
	if stored.FailureReason == nil || !strings.Contains(*stored.FailureReason, "captions unavailable") {
		t.Errorf("failure reason = %v", stored.FailureReason)
	}
	if stored.Transcript != nil {
		t.Errorf("transcript must stay unset on failure, got %q", *stored.Transcript)
	}
}

func TestProcessTerminalStatesUntouched(t *testing.T) {
	for _, status := range []constant.AssetStatus{constant.AssetStatusCompleted, constant.AssetStatusError} {
		asset := videoAsset(status)
		repo := newFakeRepo(asset)

		svc := newPipeline(repo, testConfig(), &fakeStore{}, &fakeFetcher{}, &fakeTranscriber{}, &fakeEmbedder{dim: 3})
		err := svc.Process(context.Background(), dto.TranscriptJobMessage{
			AssetId: asset.ID, AssetType: constant.AssetTypeVideo, SourceId: asset.SourceId,
		})
		if err != nil {
			t.Fatalf("Process(%s): %v", status, err)
		}
		if repo.assets[asset.ID].Status != status {
			t.Errorf("terminal status %s mutated to %s", status, repo.assets[asset.ID].Status)
		}
		if repo.claimHits != 0 {
			t.Errorf("claim attempted on %s asset", status)
		}
	}
}

func TestProcessEmbeddingFailureIsTerminal(t *testing.T) {
	asset := videoAsset(constant.AssetStatusPending)
	repo := newFakeRepo(asset)
	longText := strings.Repeat("Sentence for the transcript. ", 20)
	fetcher := &fakeFetcher{segments: []youtube.TimedText{{Text: strings.TrimSpace(longText)}}}
	embedder := &fakeEmbedder{err: errors.New("embedding quota exceeded")}

	svc := newPipeline(repo, testConfig(), &fakeStore{}, fetcher, &fakeTranscriber{}, embedder)
	err := svc.Process(context.Background(), dto.TranscriptJobMessage{
		AssetId: asset.ID, AssetType: constant.AssetTypeVideo, SourceId: asset.SourceId,
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	stored := repo.assets[asset.ID]
	if stored.Status != constant.AssetStatusError {
		t.Errorf("status = %s", stored.Status)
	}
	if len(repo.chunks[asset.ID]) != 0 {
		t.Error("no chunks may be persisted when embedding fails")
	}
}

func TestProcessUnknownAsset(t *testing.T) {
	repo := newFakeRepo()
	svc := newPipeline(repo, testConfig(), &fakeStore{}, &fakeFetcher{}, &fakeTranscriber{}, &fakeEmbedder{dim: 3})

	err := svc.Process(context.Background(), dto.TranscriptJobMessage{AssetId: uuid.New()})
	if !errors.Is(err, repository.ErrAssetNotFound) {
		t.Fatalf("pre-claim failures must bubble up for retry, got %v", err)
	}
}

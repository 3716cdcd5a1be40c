package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"worker-transcript/constant"
	"worker-transcript/entities"
)

var ErrAssetNotFound = errors.New("asset not found")

type AssetRepository interface {
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
	GetDB() *gorm.DB
	CreateAsset(ctx context.Context, asset *entities.Asset) error
	FindAssetById(ctx context.Context, id uuid.UUID) (*entities.Asset, error)
	FindAssetBySourceId(ctx context.Context, sourceId string) (*entities.Asset, error)
	ClaimAsset(ctx context.Context, id uuid.UUID) (bool, error)
	FailAsset(ctx context.Context, id uuid.UUID, reason string) error
	CompleteAssetWithChunks(ctx context.Context, id uuid.UUID, transcript string, chunks []*entities.TranscriptChunk) error
	GetChunksByAssetId(ctx context.Context, assetId uuid.UUID) ([]*entities.TranscriptChunk, error)
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) AssetRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.GetDB().Transaction(func(tx *gorm.DB) error {
		err := callback(ctx)
		if err != nil {
			return err
		}
		return nil
	}, opts...)
}

func (r *repo) CreateAsset(ctx context.Context, asset *entities.Asset) error {
	return r.GetDB().WithContext(ctx).Create(asset).Error
}

func (r *repo) FindAssetById(ctx context.Context, id uuid.UUID) (*entities.Asset, error) {
	asset := &entities.Asset{}
	err := r.GetDB().WithContext(ctx).First(asset, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}

	return asset, nil
}

func (r *repo) FindAssetBySourceId(ctx context.Context, sourceId string) (*entities.Asset, error) {
	asset := &entities.Asset{}
	err := r.GetDB().WithContext(ctx).First(asset, "source_id = ?", sourceId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, err
	}

	return asset, nil
}

// ClaimAsset is a compare-and-swap from pending to processing. A false
// return with nil error means another pipeline already owns the asset.
func (r *repo) ClaimAsset(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.GetDB().WithContext(ctx).
		Model(&entities.Asset{}).
		Where("id = ? AND status = ?", id, constant.AssetStatusPending).
		Update("status", constant.AssetStatusProcessing)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) FailAsset(ctx context.Context, id uuid.UUID, reason string) error {
	result := r.GetDB().WithContext(ctx).
		Model(&entities.Asset{}).
		Where("id = ? AND status = ?", id, constant.AssetStatusProcessing).
		Updates(map[string]interface{}{
			"status":         constant.AssetStatusError,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// CompleteAssetWithChunks writes the transcript, the completed status and
// all chunks in one transaction so a chunk insert failure never leaves an
// asset marked completed without its chunks.
func (r *repo) CompleteAssetWithChunks(ctx context.Context, id uuid.UUID, transcript string, chunks []*entities.TranscriptChunk) error {
	return r.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.Asset{}).
			Where("id = ? AND status = ?", id, constant.AssetStatusProcessing).
			Updates(map[string]interface{}{
				"status":     constant.AssetStatusCompleted,
				"transcript": transcript,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAssetNotFound
		}
		for _, chunk := range chunks {
			chunk.AssetId = id
			if err := tx.Create(chunk).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *repo) GetChunksByAssetId(ctx context.Context, assetId uuid.UUID) ([]*entities.TranscriptChunk, error) {
	var chunks []*entities.TranscriptChunk
	err := r.GetDB().WithContext(ctx).Where("asset_id = ?", assetId).Order("chunk_index ASC").Find(&chunks).Error
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

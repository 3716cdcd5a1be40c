package entities

import (
	"time"

	"github.com/google/uuid"
	"worker-transcript/constant"
)

// Asset is a video reference or uploaded audio file going through the
// transcription pipeline. Transcript stays NULL until the pipeline
// completes; failures land in FailureReason, never in Transcript.
type Asset struct {
	ID            uuid.UUID            `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SourceId      string               `json:"source_id" gorm:"type:varchar(255);not null;uniqueIndex:unique_asset_source"`
	SourceUrl     *string              `json:"source_url" gorm:"type:varchar(500)"`
	ObjectPath    *string              `json:"object_path" gorm:"type:varchar(500)"`
	Type          constant.AssetType   `json:"type" gorm:"type:varchar(10);not null"`
	Status        constant.AssetStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_assets_status"`
	Transcript    *string              `json:"transcript" gorm:"type:text"`
	FailureReason *string              `json:"failure_reason" gorm:"type:text"`
	CreatedAt     time.Time            `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time            `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Asset) TableName() string {
	return "assets"
}

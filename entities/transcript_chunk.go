package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// TranscriptChunk is a sentence-aligned slice of a completed transcript,
// created only when the transcript exceeded the chunking threshold.
// Rows are immutable after insert.
type TranscriptChunk struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AssetId    uuid.UUID       `json:"asset_id" gorm:"type:uuid;not null;index:idx_transcript_chunks_asset"`
	ChunkIndex int             `json:"chunk_index" gorm:"not null"`
	ChunkText  string          `json:"chunk_text" gorm:"type:text;not null"`
	Embedding  pgvector.Vector `json:"embedding" gorm:"type:vector(1536)"`
	CreatedAt  time.Time       `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (TranscriptChunk) TableName() string {
	return "transcript_chunks"
}

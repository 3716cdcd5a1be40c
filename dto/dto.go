package dto

import (
	"github.com/google/uuid"
	"worker-transcript/constant"
)

type TranscriptJobMessage struct {
	AssetId    uuid.UUID          `json:"assetId"`
	AssetType  constant.AssetType `json:"assetType"`
	SourceId   string             `json:"sourceId"`
	ObjectPath string             `json:"objectPath,omitempty"`
}

package server

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"worker-transcript/config"
	"worker-transcript/constant"
	"worker-transcript/dto"
	"worker-transcript/entities"
	"worker-transcript/pkg/rabbitmq"
	"worker-transcript/pkg/youtube"
	"worker-transcript/repository"
	"worker-transcript/service"
)

var validAudioExtensions = []string{".mp3", ".mp4", ".mpeg", ".mpga", ".m4a", ".wav", ".webm"}

const uploadPrefix = "audio/uploads"

type api struct {
	cfg       *config.Config
	repo      repository.AssetRepository
	summary   service.SummaryService
	publisher rabbitmq.Publisher
}

func newApi(cfg *config.Config, repo repository.AssetRepository, summary service.SummaryService, publisher rabbitmq.Publisher) *api {
	return &api{
		cfg:       cfg,
		repo:      repo,
		summary:   summary,
		publisher: publisher,
	}
}

func (a *api) register(r *gin.Engine) {
	r.POST("/transcript/url", a.startVideoProcessing)
	r.POST("/transcript/audio", a.startAudioProcessing)
	r.GET("/transcript/:id", a.getTranscriptStatus)
}

type urlRequest struct {
	Url string `json:"url" binding:"required"`
}

func (a *api) startVideoProcessing(c *gin.Context) {
	var req urlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	videoId, err := youtube.ExtractVideoID(req.Url)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := a.repo.FindAssetBySourceId(c.Request.Context(), videoId)
	if err == nil {
		a.respondForExistingAsset(c, existing)
		return
	}
	if !errors.Is(err, repository.ErrAssetNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	asset := &entities.Asset{
		ID:        uuid.New(),
		SourceId:  videoId,
		SourceUrl: &req.Url,
		Type:      constant.AssetTypeVideo,
		Status:    constant.AssetStatusPending,
	}
	if err := a.repo.CreateAsset(c.Request.Context(), asset); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := a.publisher.PublishTranscriptJob(c.Request.Context(), dto.TranscriptJobMessage{
		AssetId:   asset.ID,
		AssetType: constant.AssetTypeVideo,
		SourceId:  videoId,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":  "Video transcript processing started",
		"asset_id": asset.ID,
	})
}

// respondForExistingAsset deduplicates repeat requests for a source id
// against the existing asset's status instead of dispatching a second
// pipeline.
func (a *api) respondForExistingAsset(c *gin.Context, asset *entities.Asset) {
	switch asset.Status {
	case constant.AssetStatusCompleted:
		result, err := a.summary.SummarizeAsset(c.Request.Context(), asset.ID)
		if err != nil {
			a.respondSummaryError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"summary": result.Summary})
	case constant.AssetStatusError:
		c.JSON(http.StatusOK, gin.H{
			"message":  "Video processing failed",
			"asset_id": asset.ID,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"message":  "Video transcript is still being processed",
			"asset_id": asset.ID,
		})
	}
}

func (a *api) startAudioProcessing(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !isValidAudioExtension(ext) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Unsupported file format. Supported formats: %s", strings.Join(validAudioExtensions, ", ")),
		})
		return
	}

	objectPath := fmt.Sprintf("%s/%s_%s", uploadPrefix, uuid.NewString(), filepath.Base(file.Filename))

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	_, err = a.cfg.Storage.PutObject(c.Request.Context(), a.cfg.MinIOBucket, objectPath, src, file.Size, minio.PutObjectOptions{})
	if err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to upload audio file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded file"})
		return
	}

	asset := &entities.Asset{
		ID:         uuid.New(),
		SourceId:   objectPath,
		ObjectPath: &objectPath,
		Type:       constant.AssetTypeAudio,
		Status:     constant.AssetStatusPending,
	}
	if err := a.repo.CreateAsset(c.Request.Context(), asset); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := a.publisher.PublishTranscriptJob(c.Request.Context(), dto.TranscriptJobMessage{
		AssetId:    asset.ID,
		AssetType:  constant.AssetTypeAudio,
		SourceId:   objectPath,
		ObjectPath: objectPath,
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":  "Audio transcript processing started",
		"asset_id": asset.ID,
	})
}

func (a *api) getTranscriptStatus(c *gin.Context) {
	assetId, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid asset id"})
		return
	}

	result, err := a.summary.SummarizeAsset(c.Request.Context(), assetId)
	if err != nil {
		a.respondSummaryError(c, err)
		return
	}

	switch result.Status {
	case constant.AssetStatusCompleted:
		c.JSON(http.StatusOK, gin.H{"status": result.Status, "summary": result.Summary})
	case constant.AssetStatusError:
		c.JSON(http.StatusOK, gin.H{"status": result.Status, "detail": result.FailureReason})
	default:
		c.JSON(http.StatusOK, gin.H{"status": result.Status})
	}
}

func (a *api) respondSummaryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAssetNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
	case errors.Is(err, service.ErrEmptySelection):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"status":  "error",
			"message": "Transcript too long for processing",
		})
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to summarize asset")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to produce summary"})
	}
}

func isValidAudioExtension(ext string) bool {
	for _, valid := range validAudioExtensions {
		if ext == valid {
			return true
		}
	}
	return false
}

package handler

import (
	"context"
	"encoding/json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"worker-transcript/dto"
	"worker-transcript/service"
)

type ServiceDependencies struct {
	TranscriptService service.Service
}

func TranscriptJobHandler(ctx context.Context, msg amqp.Delivery, deps ServiceDependencies) error {
	var job dto.TranscriptJobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal transcript job message")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("asset_id", job.AssetId.String()).
		Str("asset_type", string(job.AssetType)).
		Msg("received transcript job message")

	err := deps.TranscriptService.Process(ctx, job)
	if err != nil {
		return err
	}

	return nil
}

package rabbitmq

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"worker-transcript/config"
	"worker-transcript/dto"
)

type Publisher interface {
	PublishTranscriptJob(ctx context.Context, msg dto.TranscriptJobMessage) error
}

type publisher struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQ
}

func NewPublisher(conn *amqp.Connection, cfg *config.RabbitMQ) Publisher {
	return &publisher{conn: conn, cfg: cfg}
}

func (p *publisher) PublishTranscriptJob(ctx context.Context, msg dto.TranscriptJobMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(ExchangeName, p.cfg.Kind, true, false, false, false, nil)
	if err != nil {
		zerolog.Ctx(ctx).Error().Str("exchange", ExchangeName).Msg("failed to declare exchange")
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, ExchangeName, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("asset_id", msg.AssetId.String()).Msg("failed to publish transcript job")
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("asset_id", msg.AssetId.String()).
		Str("asset_type", string(msg.AssetType)).
		Msg("transcript job published")

	return nil
}

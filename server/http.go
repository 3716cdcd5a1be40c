package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"worker-transcript/config"
	"worker-transcript/constant"
	jobHandler "worker-transcript/handler"
	"worker-transcript/pkg/azureai"
	"worker-transcript/pkg/openai"
	"worker-transcript/pkg/rabbitmq"
	"worker-transcript/pkg/tokencount"
	"worker-transcript/pkg/youtube"
	"worker-transcript/repository"
	"worker-transcript/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
	}

	counter, err := tokencount.New(cfg.Pipeline.TokenScheme, cfg.Pipeline.TokenizerPath)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to build token counter")
	}

	repo := repository.NewRepo(cfg.DB)
	openaiClient := openai.NewClient(cfg.OpenAI)
	transcriber := service.NewSegmentedTranscriber(service.NewFFmpegSegmenter(), openaiClient, cfg.Pipeline)
	transcriptService := service.NewService(
		repo,
		cfg,
		service.NewMinIOStore(cfg.Storage),
		youtube.NewFetcher(),
		transcriber,
		openaiClient,
		counter,
	)
	summaryService := service.NewSummaryService(repo, cfg, counter, azureai.NewClient(cfg.Summarizer))
	publisher := rabbitmq.NewPublisher(conn, cfg.Queue)

	serviceDeps := jobHandler.ServiceDependencies{
		TranscriptService: transcriptService,
	}

	// Start transcript job consumer
	transcriptConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.TranscriptJobHandler)
	go func() {
		err := transcriptConsumer.Consume(ctx, serviceDeps)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Transcript consumer error")
		}
	}()

	r := gin.Default()
	addHealth(r)
	newApi(cfg, repo, summaryService, publisher).register(r)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}

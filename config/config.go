package config

import (
	"database/sql"
	_ "github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/viper"
)

type Config struct {
	MinIOBucket string        `yaml:"minio_bucket"`
	App         App           `yaml:"app"`
	DB          *sql.DB       `yaml:"db"`
	Queue       *RabbitMQ     `yaml:"rabbitmq"`
	Storage     *minio.Client `yaml:"storage"`
	Server      Server        `yaml:"server"`
	OpenAI      OpenAI        `yaml:"openai"`
	Summarizer  Summarizer    `yaml:"summarizer"`
	Pipeline    Pipeline      `yaml:"pipeline"`
}

type App struct {
	Environment string `yaml:"environment"`
	Host        string `yaml:"host"`
	Protocol    string `yaml:"protocol"`
}

type Server struct {
	HttpPort string `yaml:"http_port"`
	Workers  int    `yaml:"workers"`
}

type RabbitMQ struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	User         string `json:"user"`
	Pass         string `json:"pass"`
	ExchangeName string `json:"exchange_name"`
	Kind         string `json:"kind"`
}

type OpenAI struct {
	BaseUrl        string `yaml:"base_url"`
	ApiKey         string `yaml:"api_key"`
	WhisperModel   string `yaml:"whisper_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Summarizer struct {
	Endpoint        string `yaml:"endpoint"`
	ApiKey          string `yaml:"api_key"`
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

type Pipeline struct {
	// TokenScheme selects the counting scheme ("heuristic" or "exact")
	// used for chunking and read-time budgeting alike.
	TokenScheme        string `yaml:"token_scheme"`
	TokenizerPath      string `yaml:"tokenizer_path"`
	ChunkMaxTokens     int    `yaml:"chunk_max_tokens"`
	ChunkThreshold     int    `yaml:"chunk_threshold"`
	SelectMaxTokens    int    `yaml:"select_max_tokens"`
	SegmentSeconds     int    `yaml:"segment_seconds"`
	MaxSegmentMB       int    `yaml:"max_segment_mb"`
	NormalizeScores    bool   `yaml:"normalize_scores"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
}

func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.whisper_model", "whisper-1")
	viper.SetDefault("openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("openai.timeout_seconds", 300)
	viper.SetDefault("summarizer.endpoint", "https://models.inference.ai.azure.com")
	viper.SetDefault("summarizer.model", "AI21-Jamba-1.5-Mini")
	viper.SetDefault("summarizer.max_output_tokens", 200)
	viper.SetDefault("summarizer.timeout_seconds", 60)
	viper.SetDefault("pipeline.token_scheme", "heuristic")
	viper.SetDefault("pipeline.chunk_max_tokens", 7000)
	viper.SetDefault("pipeline.chunk_threshold", 7000)
	viper.SetDefault("pipeline.select_max_tokens", 8000)
	viper.SetDefault("pipeline.segment_seconds", 600)
	viper.SetDefault("pipeline.max_segment_mb", 20)
	viper.SetDefault("pipeline.embedding_dimension", 1536)

	db, err := sql.Open("postgres", viper.GetString("postgresql_host"))
	if err != nil {
		return nil, err
	}

	rabbitmq := &RabbitMQ{
		Host: viper.GetString("rabbitmq_host"),
		Port: viper.GetInt("rabbitmq_port"),
		User: viper.GetString("rabbitmq_user"),
		Pass: viper.GetString("rabbitmq_pass"),
		Kind: viper.GetString("rabbitmq_kind"),
	}

	minioClient, err := minio.New(viper.GetString("minio.url"), &minio.Options{
		Creds:  credentials.NewStaticV4(viper.GetString("minio.access_id"), viper.GetString("minio.secret_access_key"), ""),
		Secure: false,
	})
	if err != nil {
		return nil, err
	}

	return &Config{
		MinIOBucket: viper.GetString("minio.bucket"),
		App: App{
			Environment: viper.GetString("app.environment"),
			Host:        viper.GetString("app.host"),
			Protocol:    viper.GetString("app.protocol"),
		},
		Server: Server{
			HttpPort: viper.GetString("server.port"),
			Workers:  viper.GetInt("server.workers"),
		},
		OpenAI: OpenAI{
			BaseUrl:        viper.GetString("openai.base_url"),
			ApiKey:         viper.GetString("openai.api_key"),
			WhisperModel:   viper.GetString("openai.whisper_model"),
			EmbeddingModel: viper.GetString("openai.embedding_model"),
			TimeoutSeconds: viper.GetInt("openai.timeout_seconds"),
		},
		Summarizer: Summarizer{
			Endpoint:        viper.GetString("summarizer.endpoint"),
			ApiKey:          viper.GetString("summarizer.api_key"),
			Model:           viper.GetString("summarizer.model"),
			MaxOutputTokens: viper.GetInt("summarizer.max_output_tokens"),
			TimeoutSeconds:  viper.GetInt("summarizer.timeout_seconds"),
		},
		Pipeline: Pipeline{
			TokenScheme:        viper.GetString("pipeline.token_scheme"),
			TokenizerPath:      viper.GetString("pipeline.tokenizer_path"),
			ChunkMaxTokens:     viper.GetInt("pipeline.chunk_max_tokens"),
			ChunkThreshold:     viper.GetInt("pipeline.chunk_threshold"),
			SelectMaxTokens:    viper.GetInt("pipeline.select_max_tokens"),
			SegmentSeconds:     viper.GetInt("pipeline.segment_seconds"),
			MaxSegmentMB:       viper.GetInt("pipeline.max_segment_mb"),
			NormalizeScores:    viper.GetBool("pipeline.normalize_scores"),
			EmbeddingDimension: viper.GetInt("pipeline.embedding_dimension"),
		},
		DB:      db,
		Queue:   rabbitmq,
		Storage: minioClient,
	}, nil
}

package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every configuration parameter, loaded from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Metadata provider (TMDB-compatible).
	TMDBBaseURL string `envconfig:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
	TMDBAPIKey  string `envconfig:"TMDB_API_KEY" required:"true"`

	// Web search (Serper-compatible). The fallback key takes over for the
	// rest of the process once the primary key is exhausted.
	SerperBaseURL     string `envconfig:"SERPER_BASE_URL" default:"https://google.serper.dev"`
	SerperAPIKey      string `envconfig:"SERPER_API_KEY" required:"true"`
	SerperFallbackKey string `envconfig:"SERPER_API_KEY_FALLBACK"`

	// Publisher APIs.
	GuardianBaseURL string `envconfig:"GUARDIAN_BASE_URL" default:"https://content.guardianapis.com"`
	GuardianAPIKey  string `envconfig:"GUARDIAN_API_KEY"`
	NYTBaseURL      string `envconfig:"NYT_BASE_URL" default:"https://api.nytimes.com/svc/search/v2"`
	NYTAPIKey       string `envconfig:"NYT_API_KEY"`

	// Trusted ratings.
	OMDBBaseURL string `envconfig:"OMDB_BASE_URL" default:"https://www.omdbapi.com/"`
	OMDBAPIKey  string `envconfig:"OMDB_API_KEY"`

	// Generative providers. LLM_PROVIDER selects the primary; the others
	// serve as failover.
	LLMProvider     string `envconfig:"LLM_PROVIDER" default:"deepseek"`
	DeepSeekAPIKey  string `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL string `envconfig:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com/v1"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`

	// Pipeline tuning.
	PipelineStrategy string `envconfig:"PIPELINE_STRATEGY" default:"linear"`
	FetchConcurrency int    `envconfig:"FETCH_CONCURRENCY" default:"5"`
	MaxSources       int    `envconfig:"MAX_SOURCES" default:"12"`
	CorpusMaxChars   int    `envconfig:"CORPUS_MAX_CHARS" default:"15000"`

	// Freshness sweep.
	SweepSchedule  string `envconfig:"SWEEP_SCHEDULE" default:"0 * * * *"`
	SweepBatchSize int    `envconfig:"SWEEP_BATCH_SIZE" default:"10"`

	// Consumer-facing stream endpoint gives up after this many seconds even
	// though the background run keeps going.
	StreamTimeoutSeconds int `envconfig:"STREAM_TIMEOUT_SECONDS" default:"120"`

	// Corpus archive (S3-compatible). Disabled unless a bucket is set.
	ArchiveS3Key    string `envconfig:"ARCHIVE_S3_KEY"`
	ArchiveS3Secret string `envconfig:"ARCHIVE_S3_SECRET"`
	ArchiveS3URL    string `envconfig:"ARCHIVE_S3_URL"`
	ArchiveS3Region string `envconfig:"ARCHIVE_S3_REGION" default:"us-east-1"`
	ArchiveS3Bucket string `envconfig:"ARCHIVE_S3_BUCKET"`
}

// DSN returns the Data Source Name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ArchiveEnabled reports whether corpus archiving is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveS3Bucket != "" && c.ArchiveS3Key != ""
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}

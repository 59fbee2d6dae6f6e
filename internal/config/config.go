package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Gemini   GeminiConfig
	Vector   VectorConfig
	Matching MatchingConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret    string
	AccessExpiryMin int
}

type GeminiConfig struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
}

// VectorConfig fixes the index dimensionality and the batch-sync pacing.
// Dimension must match the dimension the index was created with.
type VectorConfig struct {
	Dimension       int
	SyncBatchSize   int
	SyncBatchDelay  time.Duration
	SyncConcurrency int
}

type MatchingConfig struct {
	TopK               int
	MinScore           float64
	MinScoreRefined    float64
	DefaultMaxDistance int
	LLMScoreLimit      int
}

type LoggingConfig struct {
	Level string
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("JWT_ACCESS_EXPIRY_MIN", 60)
	viper.SetDefault("GEMINI_CHAT_MODEL", "gemini-1.5-flash")
	viper.SetDefault("GEMINI_EMBEDDING_MODEL", "text-embedding-004")
	viper.SetDefault("VECTOR_DIMENSION", 1024)
	viper.SetDefault("VECTOR_SYNC_BATCH_SIZE", 10)
	viper.SetDefault("VECTOR_SYNC_BATCH_DELAY_MS", 1000)
	viper.SetDefault("VECTOR_SYNC_CONCURRENCY", 10)
	viper.SetDefault("MATCH_TOP_K", 10)
	viper.SetDefault("MATCH_MIN_SCORE", 0.1)
	viper.SetDefault("MATCH_MIN_SCORE_REFINED", 0.3)
	viper.SetDefault("MATCH_DEFAULT_MAX_DISTANCE_MILES", 100)
	viper.SetDefault("MATCH_LLM_SCORE_LIMIT", 5)
	viper.SetDefault("LOG_LEVEL", "info")

	config := &Config{
		Server: ServerConfig{
			Host:         viper.GetString("SERVER_HOST"),
			Port:         viper.GetInt("SERVER_PORT"),
			Env:          viper.GetString("ENV"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetInt("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			AccessSecret:    viper.GetString("JWT_ACCESS_SECRET"),
			AccessExpiryMin: viper.GetInt("JWT_ACCESS_EXPIRY_MIN"),
		},
		Gemini: GeminiConfig{
			APIKey:         viper.GetString("GEMINI_API_KEY"),
			ChatModel:      viper.GetString("GEMINI_CHAT_MODEL"),
			EmbeddingModel: viper.GetString("GEMINI_EMBEDDING_MODEL"),
		},
		Vector: VectorConfig{
			Dimension:       viper.GetInt("VECTOR_DIMENSION"),
			SyncBatchSize:   viper.GetInt("VECTOR_SYNC_BATCH_SIZE"),
			SyncBatchDelay:  time.Duration(viper.GetInt("VECTOR_SYNC_BATCH_DELAY_MS")) * time.Millisecond,
			SyncConcurrency: viper.GetInt("VECTOR_SYNC_CONCURRENCY"),
		},
		Matching: MatchingConfig{
			TopK:               viper.GetInt("MATCH_TOP_K"),
			MinScore:           viper.GetFloat64("MATCH_MIN_SCORE"),
			MinScoreRefined:    viper.GetFloat64("MATCH_MIN_SCORE_REFINED"),
			DefaultMaxDistance: viper.GetInt("MATCH_DEFAULT_MAX_DISTANCE_MILES"),
			LLMScoreLimit:      viper.GetInt("MATCH_LLM_SCORE_LIMIT"),
		},
		Logging: LoggingConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT access secret is required")
	}
	if len(c.JWT.AccessSecret) < 32 {
		return fmt.Errorf("JWT access secret must be at least 32 characters")
	}
	if c.Vector.Dimension <= 0 {
		return fmt.Errorf("vector dimension must be positive")
	}
	if c.Matching.TopK <= 0 {
		return fmt.Errorf("match top-k must be positive")
	}
	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

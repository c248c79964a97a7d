package config

import (
	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	ServerPort  string `mapstructure:"SERVER_PORT"`

	// Listing-site scraping.
	SearchBaseURL    string `mapstructure:"SEARCH_BASE_URL"`
	ContractCardURL  string `mapstructure:"CONTRACT_CARD_URL"`
	ScrapeWorkers    int    `mapstructure:"SCRAPE_WORKERS"`
	ScrapeTimeout    int    `mapstructure:"SCRAPE_TIMEOUT"` // seconds
	PolitenessMinMs  int    `mapstructure:"POLITENESS_MIN_MS"`
	PolitenessMaxMs  int    `mapstructure:"POLITENESS_MAX_MS"`
	UseBrowser       bool   `mapstructure:"USE_BROWSER"`
	DocFetchTimeout  int    `mapstructure:"DOC_FETCH_TIMEOUT"` // seconds
	DocCacheTTLHours int    `mapstructure:"DOC_CACHE_TTL_HOURS"`

	// Yandex Vision OCR.
	OCRURL         string `mapstructure:"OCR_URL"`
	OCRToken       string `mapstructure:"OCR_TOKEN"`
	OCRFolderID    string `mapstructure:"OCR_FOLDER_ID"`
	OCRConcurrency int    `mapstructure:"OCR_CONCURRENCY"`
	OCRMaxAttempts int    `mapstructure:"OCR_MAX_ATTEMPTS"`
	OCRBackoffMs   int    `mapstructure:"OCR_BACKOFF_MS"`
	OCRTimeout     int    `mapstructure:"OCR_TIMEOUT"` // seconds

	// YandexGPT completion API.
	LLMURL      string `mapstructure:"LLM_URL"`
	LLMAPIKey   string `mapstructure:"LLM_API_KEY"`
	LLMFolderID string `mapstructure:"LLM_FOLDER_ID"`

	// Auth.
	JWTSecret       string `mapstructure:"JWT_SECRET"`
	TokenTTLMinutes int    `mapstructure:"TOKEN_TTL_MINUTES"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SEARCH_BASE_URL", "https://zakupki.gov.ru/epz/contract/search/results.html")
	viper.SetDefault("CONTRACT_CARD_URL", "https://zakupki.gov.ru/epz/contract/contractCard/document-info.html")
	viper.SetDefault("SCRAPE_WORKERS", 3)
	viper.SetDefault("SCRAPE_TIMEOUT", 15)
	// The politeness window and backoff constants are tuned against the
	// origin's abuse thresholds; change with care.
	viper.SetDefault("POLITENESS_MIN_MS", 1000)
	viper.SetDefault("POLITENESS_MAX_MS", 2500)
	viper.SetDefault("USE_BROWSER", false)
	viper.SetDefault("DOC_FETCH_TIMEOUT", 15)
	viper.SetDefault("DOC_CACHE_TTL_HOURS", 24)
	viper.SetDefault("OCR_URL", "https://ocr.api.cloud.yandex.net/ocr/v1/recognizeText")
	viper.SetDefault("OCR_CONCURRENCY", 5)
	viper.SetDefault("OCR_MAX_ATTEMPTS", 5)
	viper.SetDefault("OCR_BACKOFF_MS", 600)
	viper.SetDefault("OCR_TIMEOUT", 30)
	viper.SetDefault("LLM_URL", "https://llm.api.cloud.yandex.net/foundationModels/v1/completion")
	viper.SetDefault("TOKEN_TTL_MINUTES", 60)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

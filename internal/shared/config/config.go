package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string
	Port        string
	Env         string
	JWTSecret   string

	// Provider API keys
	OpenAIKey string
	GeminiKey string
	RunwayKey string
	KlingKey  string

	// Artifact storage
	StorageProvider string // "local" or "s3"
	StoragePath     string // local provider base dir
	StorageBaseURL  string
	S3AccessKeyID   string
	S3SecretKey     string
	S3Region        string
	S3Bucket        string

	// Generation pipeline
	GenerationTimeout time.Duration // outer deadline per attempt
	RefundOnFailure   bool          // credit back when a charged attempt fails
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Port:            os.Getenv("PORT"),
		Env:             os.Getenv("ENV"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		GeminiKey:       os.Getenv("GEMINI_API_KEY"),
		RunwayKey:       os.Getenv("RUNWAY_API_KEY"),
		KlingKey:        os.Getenv("KLING_API_KEY"),
		StorageProvider: os.Getenv("STORAGE_PROVIDER"),
		StoragePath:     os.Getenv("STORAGE_PATH"),
		StorageBaseURL:  os.Getenv("STORAGE_BASE_URL"),
		S3AccessKeyID:   os.Getenv("AWS_ACCESS_KEY_ID"),
		S3SecretKey:     os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3Region:        os.Getenv("AWS_REGION"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-me"
	}
	if cfg.StorageProvider == "" {
		cfg.StorageProvider = "local"
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = "./uploads"
	}
	if cfg.StorageBaseURL == "" {
		cfg.StorageBaseURL = "http://localhost:" + cfg.Port + "/uploads"
	}

	cfg.GenerationTimeout = 5 * time.Minute
	if v := os.Getenv("GENERATION_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.GenerationTimeout = time.Duration(secs) * time.Second
		}
	}

	cfg.RefundOnFailure = os.Getenv("REFUND_ON_FAILURE") == "true"

	return cfg
}

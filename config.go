package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"catalog-sync-service/awsutil"
)

// Config holds all environment variables for the catalog-sync-service.
type Config struct {
	Port      string // Service port (default: 8086)
	MongoURL  string
	MongoDB   string
	RedisURL  string
	JWTSecret string

	// SyncBudget is the wall-clock budget for one execution context.
	SyncBudget time.Duration
	// CredentialsKey derives the AES key for tokens stored on integrations.
	CredentialsKey string
	// StrictEnvironment makes a missing integration environment fatal.
	StrictEnvironment bool
	// UseAWSSecrets switches credential resolution to Secrets Manager.
	UseAWSSecrets bool

	KafkaBrokers []string
	KafkaTopic   string
}

// LoadConfig loads environment variables into Config struct and validates
// them. If AWS_USE_SECRETS=true it will attempt to read secrets from Secrets
// Manager and fall back to env vars on failure.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Port:              os.Getenv("PORT"),
		MongoURL:          os.Getenv("MONGO_URL"),
		MongoDB:           os.Getenv("MONGO_DB"),
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		CredentialsKey:    os.Getenv("SYNC_CREDENTIALS_KEY"),
		StrictEnvironment: os.Getenv("STRICT_ENVIRONMENT") == "true",
		UseAWSSecrets:     os.Getenv("AWS_USE_SECRETS") == "true",
		KafkaTopic:        os.Getenv("KAFKA_TOPIC"),
	}

	if cfg.Port == "" {
		cfg.Port = "8086"
	}
	if cfg.MongoURL == "" {
		cfg.MongoURL = "mongodb://mongo:27017"
	}
	if cfg.MongoDB == "" {
		cfg.MongoDB = "catalog_sync"
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://redis:6379"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "catalog.sync.events"
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	cfg.SyncBudget = 50 * time.Second
	if raw := os.Getenv("SYNC_BUDGET_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 10 {
			return nil, fmt.Errorf("SYNC_BUDGET_SECONDS must be an integer >= 10")
		}
		cfg.SyncBudget = time.Duration(secs) * time.Second
	}

	if cfg.UseAWSSecrets {
		if awsCfg, err := awsutil.LoadAWSConfig(context.Background()); err == nil {
			sm := awsutil.NewSecretsClient(awsCfg)

			if jwt, err := sm.GetSecret(context.Background(), awsutil.ServiceSecretName("JWT_SECRET")); err == nil && jwt != "" {
				cfg.JWTSecret = jwt
			}
		}
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if !cfg.UseAWSSecrets && cfg.CredentialsKey == "" {
		return nil, fmt.Errorf("SYNC_CREDENTIALS_KEY is required unless AWS_USE_SECRETS=true")
	}

	return cfg, nil
}

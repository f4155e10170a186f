package config

import (
	"os"
	"time"
)

// ElasticsearchConfig содержит конфигурацию для подключения к Elasticsearch
type ElasticsearchConfig struct {
	URL        string
	Index      string
	Username   string
	Password   string
	MaxRetries int
	Timeout    time.Duration
	// SeedOnStart загружает встроенный каталог в индекс при старте
	SeedOnStart bool
}

// LoadElasticsearchConfig загружает конфигурацию Elasticsearch из переменных окружения
func LoadElasticsearchConfig() ElasticsearchConfig {
	return ElasticsearchConfig{
		URL:         getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
		Index:       getEnv("ELASTICSEARCH_INDEX", "catalog"),
		Username:    os.Getenv("ELASTICSEARCH_USERNAME"),
		Password:    os.Getenv("ELASTICSEARCH_PASSWORD"),
		MaxRetries:  getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
		Timeout:     getEnvDuration("ELASTICSEARCH_TIMEOUT", 30*time.Second),
		SeedOnStart: getEnvBool("ELASTICSEARCH_SEED", true),
	}
}

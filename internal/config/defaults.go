package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/osusume/data/db/courses.db"
	}
	if cfg.Storage.ModelDir == "" {
		cfg.Storage.ModelDir = "/usr/local/var/osusume/data/models"
	}
	if cfg.Recommend.MaxFeatures == 0 {
		cfg.Recommend.MaxFeatures = 5000
	}
	if cfg.Recommend.DefaultTopN == 0 {
		cfg.Recommend.DefaultTopN = 5
	}
	if cfg.Recommend.MaxTopN == 0 {
		cfg.Recommend.MaxTopN = 50
	}
	if cfg.Recommend.ModelName == "" {
		cfg.Recommend.ModelName = "course-recommendation"
	}
	if cfg.Recommend.DependencyTimeout == 0 {
		cfg.Recommend.DependencyTimeout = 10 * time.Second
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".json", ".csv", ".xlsx"}
	}
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port      int
		JWTSecret string
	}
	Database struct {
		Path string
	}
	Reports struct {
		OutputDir        string
		Workers          int
		ExecutionTimeout time.Duration
		RetentionDays    int
		SweepInterval    time.Duration
	}
	Alert struct {
		Slack struct {
			Token   string
			Channel string
		}
		Email struct {
			SMTPHost  string
			SMTPPort  int
			From      string
			Password  string
			Receivers []string
		}
	}
}

// LoadConfig loads the configuration from config.yaml
func LoadConfig() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.jwtsecret", "change-me-in-production")
	viper.SetDefault("database.path", "data/oncoregistry.db")
	viper.SetDefault("reports.outputdir", "data/reports")
	viper.SetDefault("reports.workers", 4)
	viper.SetDefault("reports.executiontimeout", 10*time.Minute)
	viper.SetDefault("reports.retentiondays", 90)
	viper.SetDefault("reports.sweepinterval", 24*time.Hour)

	var config Config

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, run on defaults and write them out
			if err := os.MkdirAll("data", 0755); err != nil {
				fmt.Printf("Warning: Failed to create data directory: %v\n", err)
			}
			if err := viper.SafeWriteConfig(); err != nil {
				fmt.Printf("Warning: Failed to write default config: %v\n", err)
			}
		} else {
			fmt.Printf("Error reading config file: %v\n", err)
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		fmt.Printf("Error unmarshaling config: %v\n", err)
	}

	return &config
}

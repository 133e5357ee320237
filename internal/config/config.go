package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries the tunables of the chat server. Protocol constants
// (name lengths, the 3MB file cap) live in the packages that enforce them.
type Config struct {
	MaxClients        int
	QueueSize         int
	ConcurrentUploads int
	ProcessDelay      time.Duration
	LogFile           string
	OutputDir         string
	BackupFile        string
	MessageRate       float64
	MessageBurst      int
}

func Load() *Config {
	return &Config{
		MaxClients:        envInt("CHAT_MAX_CLIENTS", 50),
		QueueSize:         envInt("CHAT_QUEUE_SIZE", 20),
		ConcurrentUploads: envInt("CHAT_CONCURRENT_UPLOADS", 5),
		ProcessDelay:      envDuration("CHAT_PROCESS_DELAY", 2*time.Second),
		LogFile:           envString("CHAT_LOG_FILE", "log.txt"),
		OutputDir:         envString("CHAT_OUTPUT_DIR", "."),
		BackupFile:        envString("CHAT_BACKUP_FILE", "received_file_server_side.txt"),
		MessageRate:       envFloat("CHAT_MESSAGE_RATE", 10),
		MessageBurst:      envInt("CHAT_MESSAGE_BURST", 20),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

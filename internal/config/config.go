package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr        string
	MongoURI          string
	MongoDB           string
	RedisAddr         string
	RedisPassword     string
	AccessTokenSecret string
	TokenTTL          time.Duration
	AttachDir         string
	AttachNameKey     string
	MaxFileSize       int64
}

var required = []string{
	"MONGO_URI",
	"ACCESS_TOKEN_SECRET",
	"ATTACH_NAME_KEY",
}

// Load reads configuration from the environment, after loading a .env file
// if one is present. Missing required variables fail startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var missing []string
	for _, name := range required {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", "localhost:9090"),
		MongoURI:          os.Getenv("MONGO_URI"),
		MongoDB:           getEnv("MONGO_DB", "dm_chat"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		AccessTokenSecret: os.Getenv("ACCESS_TOKEN_SECRET"),
		TokenTTL:          30 * time.Minute,
		AttachDir:         getEnv("ATTACH_DIR", "attachments"),
		AttachNameKey:     os.Getenv("ATTACH_NAME_KEY"),
		MaxFileSize:       10 * 1024 * 1024,
	}

	if v := os.Getenv("TOKEN_TTL_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES %q: %w", v, err)
		}
		cfg.TokenTTL = time.Duration(minutes) * time.Minute
	}

	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_FILE_SIZE %q: %w", v, err)
		}
		cfg.MaxFileSize = size
	}

	return cfg, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// internal/config/config.go
package config

import (
    "os"
    "strconv"
    "time"
)

// Config carries every tunable the engine reads from the environment.
type Config struct {
    Port          string
    AmqpURL       string
    RedisAddr     string
    DispatchToken string
    DevMode       bool

    BatchSize      int
    SendInterval   time.Duration
    ReenqueueDelay time.Duration
    MaxTargets     int
}

func Load() Config {
    return Config{
        Port:          getEnv("PORT", "8080"),
        AmqpURL:       os.Getenv("AMQP_URL"),
        RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
        DispatchToken: os.Getenv("DISPATCH_TOKEN"),
        DevMode:       os.Getenv("DEV_MODE") == "true",

        BatchSize:      getEnvInt("BATCH_SIZE", 20),
        SendInterval:   getEnvDuration("SEND_INTERVAL", 3*time.Second),
        ReenqueueDelay: getEnvDuration("REENQUEUE_DELAY", 5*time.Second),
        MaxTargets:     getEnvInt("MAX_TARGETS", 5000),
    }
}

func getEnv(key, fallback string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return fallback
}

func getEnvInt(key string, fallback int) int {
    if v := os.Getenv(key); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            return n
        }
    }
    return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
    if v := os.Getenv(key); v != "" {
        if d, err := time.ParseDuration(v); err == nil && d >= 0 {
            return d
        }
    }
    return fallback
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// Generation backends
	GeminiAPIKey       string
	GeminiModelID      string
	AWSRegion          string
	BedrockModelID     string
	GenerationTimeout  time.Duration
	GenerationMaxToken int

	// Facility directory
	FacilityDirectoryURL     string
	FacilityDirectoryTimeout time.Duration
	FacilitySearchRadiusKm   int

	// Coach / speech
	CoachVoice string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:      getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", ""),
		GenerationTimeout:  getEnvAsDuration("GENERATION_TIMEOUT", 45*time.Second),
		GenerationMaxToken: getEnvAsInt("GENERATION_MAX_TOKENS", 2048),

		FacilityDirectoryURL:     getEnv("FACILITY_DIRECTORY_URL", "http://localhost:9001"),
		FacilityDirectoryTimeout: getEnvAsDuration("FACILITY_DIRECTORY_TIMEOUT", 10*time.Second),
		FacilitySearchRadiusKm:   getEnvAsInt("FACILITY_SEARCH_RADIUS_KM", 20),

		CoachVoice: getEnv("COACH_VOICE", "alloy"),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

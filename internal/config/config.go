package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	DatabaseURL        string
	JWTSecret          string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	ProviderTimeout    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Reply provider
	GeminiAPIKey   string
	GeminiModelID  string
	BedrockModelID string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Crisis detection
	ConfirmWithModel  bool
	CrisisClassifier  string
	HuggingFaceAPIKey string
	HuggingFaceURL    string

	// Localization
	GoogleTranslateAPIKey string
	TranslationCacheTTL   time.Duration

	// SOS notifications
	EmailProvider       string
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string
	SESFromEmail        string
	SOSEmailTo          string
	CrisisAlertQueueURL string

	// Booking
	BookingTimezone         string
	BookingDefaultDuration  time.Duration
	BookingPendingIntentTTL time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		ProviderTimeout:    getEnvAsDuration("PROVIDER_TIMEOUT", 20*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		ConfirmWithModel:  getEnvAsBool("CONFIRM_WITH_MODEL", false),
		CrisisClassifier:  strings.ToLower(strings.TrimSpace(getEnv("CRISIS_CLASSIFIER", "llm"))),
		HuggingFaceAPIKey: getEnv("HF_API_KEY", ""),
		HuggingFaceURL:    getEnv("HF_MODEL_URL", "https://router.huggingface.co/hf-inference/models/sentinet/suicidality"),

		GoogleTranslateAPIKey: getEnv("GOOGLE_TRANSLATE_API_KEY", ""),
		TranslationCacheTTL:   getEnvAsDuration("TRANSLATION_CACHE_TTL", 7*24*time.Hour),

		EmailProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "PsyCare SOS"),
		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		SOSEmailTo:          getEnv("SOS_EMAIL_TO", ""),
		CrisisAlertQueueURL: getEnv("CRISIS_ALERT_QUEUE_URL", ""),

		BookingTimezone:         getEnv("BOOKING_TIMEZONE", "Asia/Kolkata"),
		BookingDefaultDuration:  getEnvAsDuration("BOOKING_DEFAULT_DURATION", time.Hour),
		BookingPendingIntentTTL: getEnvAsDuration("BOOKING_PENDING_INTENT_TTL", 0),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

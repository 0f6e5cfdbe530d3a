package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string
	LogFile   string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AdminJWTSecret     string
	AdminRoles         []string
	AdminUserIDs       []string
	CORSAllowedOrigins []string
	RealtimeChannel    string

	PublicRateLimitRPS   float64
	PublicRateLimitBurst int

	// Geolocation
	GeoProviderTimeout time.Duration
	GeoProviders       []string
	GeoBlockedAgents   []string
	GeoIPCacheTTL      time.Duration

	// Contact form
	ContactCooldown       time.Duration
	ContactRedirectDelay  time.Duration
	ContactWhatsAppNumber string
	ContactViberNumber    string
	ContactEmail          string
	ContactEmailSubject   string
	ContactMessengerPage  string
	ContactPhoneNumber    string

	// Exports
	ExportTimezone string
	ExportTZLabel  string
	ExportS3Bucket string

	// Visit analytics
	AnalyticsEnabled  bool
	AnalyticsEndpoint string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Lead alert email
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string
	SESFromEmail        string
	LeadAlertRecipients []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		LogFile:   getEnv("LOG_FILE", ""),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		AdminRoles:         getEnvAsList("ADMIN_ROLES", []string{"admin"}),
		AdminUserIDs:       getEnvAsList("ADMIN_USER_IDS", nil),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RealtimeChannel:    getEnv("REALTIME_CHANNEL", "admin_notifications:changes"),

		PublicRateLimitRPS:   getEnvAsFloat("PUBLIC_RATE_LIMIT_RPS", 1),
		PublicRateLimitBurst: getEnvAsInt("PUBLIC_RATE_LIMIT_BURST", 5),

		GeoProviderTimeout: getEnvAsDuration("GEO_PROVIDER_TIMEOUT", 4*time.Second),
		GeoProviders:       getEnvAsList("GEO_PROVIDERS", []string{"ipapi", "ipwho", "ipapicom"}),
		GeoBlockedAgents:   getEnvAsList("GEO_BLOCKED_AGENTS", []string{"Brave", "DuckDuckGo", "Focus/"}),
		GeoIPCacheTTL:      getEnvAsDuration("GEO_IP_CACHE_TTL", 24*time.Hour),

		ContactCooldown:       getEnvAsDuration("CONTACT_COOLDOWN", 3*time.Second),
		ContactRedirectDelay:  getEnvAsDuration("CONTACT_REDIRECT_DELAY", 1500*time.Millisecond),
		ContactWhatsAppNumber: getEnv("CONTACT_WHATSAPP_NUMBER", "639458751971"),
		ContactViberNumber:    getEnv("CONTACT_VIBER_NUMBER", "639458751971"),
		ContactEmail:          getEnv("CONTACT_EMAIL", "technofyph@gmail.com"),
		ContactEmailSubject:   getEnv("CONTACT_EMAIL_SUBJECT", "Inquiry - Technofy"),
		ContactMessengerPage:  getEnv("CONTACT_MESSENGER_HANDLE", "technofy.ph"),
		ContactPhoneNumber:    getEnv("CONTACT_PHONE_DISPLAY", "+63287402151"),

		ExportTimezone: getEnv("EXPORT_TZ", "Asia/Manila"),
		ExportTZLabel:  getEnv("EXPORT_TZ_LABEL", "PH"),
		ExportS3Bucket: getEnv("EXPORT_S3_BUCKET", ""),

		AnalyticsEnabled:  getEnvAsBool("ANALYTICS_ENABLED", false),
		AnalyticsEndpoint: getEnv("ANALYTICS_ENDPOINT", ""),

		AWSRegion:           getEnv("AWS_REGION", "ap-southeast-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "Technofy"),
		SESFromEmail:        getEnv("SES_FROM_EMAIL", ""),
		LeadAlertRecipients: getEnvAsList("LEAD_ALERT_RECIPIENTS", nil),
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

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

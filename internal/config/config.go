package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// DisplayTimezone anchors all date/time parsing and rendering.
	// Mixing UTC and local day boundaries is a correctness bug, so every
	// component resolves dates against this one zone.
	DisplayTimezone string

	AgentName        string
	AgentChatID      string
	AgentNotifyEmail string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	StateTTL      time.Duration

	TelegramBotToken string

	WhatsAppPhoneNumberID     string
	WhatsAppAccessToken       string
	WhatsAppWebhookVerify     string
	WhatsAppBusinessAccountID string

	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioWhatsAppFrom  string
	TwilioWebhookSecret string

	GroqAPIKey   string
	GroqModel    string
	GeminiAPIKey string
	GeminiModel  string

	GoogleCredentialsJSON string
	GoogleCalendarID      string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	AdminJWTSecret string

	SendTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DisplayTimezone: getEnv("DISPLAY_TZ", "Asia/Singapore"),

		AgentName:        getEnv("AGENT_NAME", "John"),
		AgentChatID:      getEnv("AGENT_CHAT_ID", ""),
		AgentNotifyEmail: getEnv("AGENT_NOTIFY_EMAIL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		StateTTL:      getEnvAsDuration("STATE_TTL", 720*time.Hour),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		WhatsAppPhoneNumberID:     getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppAccessToken:       getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppWebhookVerify:     getEnv("WHATSAPP_WEBHOOK_VERIFY", "consigliere_verify"),
		WhatsAppBusinessAccountID: getEnv("WHATSAPP_BUSINESS_ACCOUNT_ID", ""),

		TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioWhatsAppFrom:  getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		TwilioWebhookSecret: getEnv("TWILIO_WEBHOOK_SECRET", ""),

		GroqAPIKey:   getEnv("GROQ_API_KEY", ""),
		GroqModel:    getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Consigliere"),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		SendTimeout: getEnvAsDuration("SEND_TIMEOUT", 10*time.Second),
	}
}

// Location resolves the configured display timezone, falling back to a fixed
// UTC+8 zone when tzdata is unavailable.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.FixedZone("SGT", 8*60*60)
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

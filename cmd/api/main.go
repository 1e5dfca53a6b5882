package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/consigliere-ai/consigliere/internal/api/router"
	"github.com/consigliere-ai/consigliere/internal/assistant"
	"github.com/consigliere-ai/consigliere/internal/bookings"
	"github.com/consigliere-ai/consigliere/internal/calendar"
	"github.com/consigliere-ai/consigliere/internal/channels/telegram"
	"github.com/consigliere-ai/consigliere/internal/channels/twiliowa"
	"github.com/consigliere-ai/consigliere/internal/channels/whatsapp"
	appconfig "github.com/consigliere-ai/consigliere/internal/config"
	"github.com/consigliere-ai/consigliere/internal/dialogue"
	"github.com/consigliere-ai/consigliere/internal/http/handlers"
	"github.com/consigliere-ai/consigliere/internal/leads"
	"github.com/consigliere-ai/consigliere/internal/notify"
	"github.com/consigliere-ai/consigliere/internal/observability/metrics"
	"github.com/consigliere-ai/consigliere/internal/property"
	"github.com/consigliere-ai/consigliere/internal/reply"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting consigliere API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	loc := cfg.Location()

	// Redis is optional: without it state, history, leads, and dedupe run
	// in-memory only.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		opts := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, continuing with in-memory fallbacks",
				"addr", cfg.RedisAddr, "error", err)
		}
	}

	catalog := property.NewCatalog(nil)

	// Lead storage
	var leadRepo leads.Repository
	if redisClient != nil {
		leadRepo = leads.NewRedisRepository(redisClient, cfg.StateTTL)
	} else {
		leadRepo = leads.NewInMemoryRepository()
	}

	// Calendar sync is optional.
	var scheduler bookings.Scheduler
	if cfg.GoogleCredentialsJSON != "" {
		gs, err := calendar.NewGoogleScheduler(ctx,
			[]byte(cfg.GoogleCredentialsJSON), cfg.GoogleCalendarID,
			cfg.AgentNotifyEmail, loc, logger)
		if err != nil {
			logger.Error("google calendar init failed, bookings will not sync", "error", err)
		} else {
			scheduler = gs
		}
	}

	// Channel clients
	telegramClient := telegram.NewClient(cfg.TelegramBotToken, logger)
	whatsappClient := whatsapp.NewClient(cfg.WhatsAppPhoneNumberID, cfg.WhatsAppAccessToken, logger)
	twilioSender := twiliowa.NewSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, logger)

	// Agent notifications over Telegram and email
	emailSender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)
	var notifier bookings.Notifier
	if cfg.AgentChatID != "" || cfg.AgentNotifyEmail != "" {
		var email notify.EmailSender
		if emailSender != nil {
			email = emailSender
		}
		notifier = notify.NewService(telegramClient, cfg.AgentChatID, email, cfg.AgentNotifyEmail, logger)
	}

	// Booking service and dialogue engine
	bookingRepo := bookings.NewInMemoryRepository()
	bookingService := bookings.NewService(bookingRepo, scheduler, notifier, logger)
	engine := dialogue.NewEngine(catalog, bookingService, cfg.AgentName, loc, logger)

	// LLM chain: Groq primary, Gemini fallback, keyword responder behind both
	var llm reply.LLMClient
	if cfg.GroqAPIKey != "" {
		groq, err := reply.NewGroqLLMClient(cfg.GroqAPIKey, cfg.GroqModel, logger)
		if err != nil {
			logger.Error("groq client init failed", "error", err)
		} else {
			llm = groq
		}
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := reply.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("gemini client init failed", "error", err)
		} else if llm != nil {
			llm = reply.NewFallbackLLMClient(llm, gemini, logger)
		} else {
			llm = gemini
		}
	}
	generator := reply.NewGenerator(llm, catalog, cfg.AgentName, logger)

	// Conversation pipeline
	assistantMetrics := metrics.NewAssistantMetrics(prometheus.DefaultRegisterer)
	processor := assistant.NewProcessor(
		dialogue.NewStore(redisClient, cfg.StateTTL, logger),
		dialogue.NewHistoryStore(redisClient, cfg.StateTTL, logger),
		engine,
		generator,
		leadRepo,
		assistant.NewDeduper(redisClient, logger),
		assistantMetrics,
		logger,
	)

	// Webhook handlers
	telegramWebhook := telegram.NewWebhookHandler(processor, telegramClient, logger)
	whatsappWebhook := whatsapp.NewWebhookHandler(cfg.WhatsAppWebhookVerify, processor, whatsappClient, logger)
	twilioWebhook := twiliowa.NewWebhookHandler(cfg.TwilioAuthToken,
		cfg.PublicBaseURL+"/webhooks/twilio", processor, logger)

	admin := handlers.NewAdmin(leadRepo, bookingRepo, map[string]handlers.TextSender{
		assistant.ChannelTelegram: telegramClient,
		assistant.ChannelWhatsApp: whatsappClient,
		assistant.ChannelTwilio:   twilioSender,
	}, logger)

	r := router.New(&router.Config{
		Logger:          logger,
		TelegramWebhook: telegramWebhook,
		WhatsAppWebhook: whatsappWebhook,
		TwilioWebhook:   twilioWebhook,
		Admin:           admin,
		AdminAuthSecret: cfg.AdminJWTSecret,
		MetricsHandler:  promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	logger.Info("server stopped")
}

package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/consigliere-ai/consigliere/internal/channels/telegram"
	"github.com/consigliere-ai/consigliere/internal/channels/twiliowa"
	"github.com/consigliere-ai/consigliere/internal/channels/whatsapp"
	"github.com/consigliere-ai/consigliere/internal/http/handlers"
	httpmiddleware "github.com/consigliere-ai/consigliere/internal/http/middleware"
	"github.com/consigliere-ai/consigliere/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	TelegramWebhook *telegram.WebhookHandler
	WhatsAppWebhook *whatsapp.WebhookHandler
	TwilioWebhook   *twiliowa.WebhookHandler
	Admin           *handlers.Admin
	AdminAuthSecret string
	MetricsHandler  http.Handler
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.TelegramWebhook != nil {
			public.Post("/webhooks/telegram", cfg.TelegramWebhook.HandleUpdate)
		}
		if cfg.WhatsAppWebhook != nil {
			public.Get("/webhooks/whatsapp", cfg.WhatsAppWebhook.HandleVerification)
			public.Post("/webhooks/whatsapp", cfg.WhatsAppWebhook.HandleInbound)
		}
		if cfg.TwilioWebhook != nil {
			public.Post("/webhooks/twilio", cfg.TwilioWebhook.HandleInbound)
			// Twilio console probes the URL with GET during setup.
			public.Get("/webhooks/twilio", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		}
	})

	// Admin endpoints behind JWT auth
	if cfg.Admin != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/leads", cfg.Admin.ListLeads)
			admin.Get("/bookings", cfg.Admin.ListBookings)
			admin.Post("/test/send", cfg.Admin.TestSend)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

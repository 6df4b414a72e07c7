package handler

import (
	"context"

	"github.com/ClareAI/astra-transfer-service/internal/carrier"
	"github.com/ClareAI/astra-transfer-service/internal/config"
	"github.com/ClareAI/astra-transfer-service/internal/registry"
	"github.com/ClareAI/astra-transfer-service/internal/transfer"
	"github.com/ClareAI/astra-transfer-service/internal/ultravox"
	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandlerManager wires the registry, carrier adapter and transfer service
// into their HTTP handlers.
type HandlerManager struct {
	config          *config.TransferConfig
	store           registry.Store
	callControl     carrier.CallControl
	transferService *transfer.Service
	ultravoxClient  *ultravox.Client
	outboundHandler *OutboundHandler
}

// NewHandlerManager creates and initializes all handlers and services
func NewHandlerManager(cfg *config.TransferConfig) (*HandlerManager, error) {
	store := newStore(cfg)
	callControl := carrier.NewTwilioCallControl(cfg.TwilioAccountSID, cfg.TwilioAuthToken)

	transferService := transfer.NewService(store, callControl, transfer.Config{
		FromNumber:       cfg.TwilioPhoneNumber,
		BaseURL:          cfg.BaseURL(),
		JoinPollInterval: cfg.JoinPollInterval,
		JoinPollTimeout:  cfg.JoinPollTimeout,
	})

	ultravoxClient := ultravox.NewClient(cfg.UltravoxAPIKey, cfg.UltravoxAPIURL)

	return &HandlerManager{
		config:          cfg,
		store:           store,
		callControl:     callControl,
		transferService: transferService,
		ultravoxClient:  ultravoxClient,
		outboundHandler: NewOutboundHandler(cfg, ultravoxClient, callControl, store),
	}, nil
}

// InitiateOutbound places the demo outbound call, used by the -outbound
// startup flag.
func (m *HandlerManager) InitiateOutbound(ctx context.Context, req InitiateOutboundRequest) (*InitiateOutboundResponse, error) {
	return m.outboundHandler.Initiate(ctx, req)
}

// newStore selects the registry backend. A Redis failure falls back to the
// in-memory store so the service still comes up.
func newStore(cfg *config.TransferConfig) registry.Store {
	if cfg.RegistryBackend == "redis" {
		redisStore, err := registry.NewRedisStore(&registry.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Base().Warn("failed to initialize redis registry, falling back to memory",
				zap.Error(err))
		} else {
			logger.Base().Info("redis call registry initialized",
				zap.String("host", cfg.RedisHost))
			return redisStore
		}
	}
	return registry.NewMemoryStore()
}

// SetupAllRoutes registers every route on the router.
func (m *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.Use(GlobalLoggingMiddleware)

	transferHandler := NewTransferHandler(m.config, m.store, m.transferService)
	transferHandler.SetupRoutes(router)

	conferenceHandler := NewConferenceHandler(m.transferService)
	conferenceHandler.SetupRoutes(router)

	webhookHandler := NewCarrierWebhookHandler()
	webhookHandler.SetupRoutes(router)

	m.outboundHandler.SetupRoutes(router)

	logger.Base().Info("all routes registered")
}

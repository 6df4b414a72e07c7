package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ClareAI/astra-transfer-service/internal/config"
	"github.com/ClareAI/astra-transfer-service/internal/handler"
	"github.com/ClareAI/astra-transfer-service/pkg/logger"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Server represents the call transfer service
type Server struct {
	config         *config.TransferConfig
	router         *mux.Router
	handlerManager *handler.HandlerManager
}

// NewServer creates a new call transfer server
func NewServer(cfg *config.TransferConfig) *Server {
	if _, err := logger.Init(cfg.LogEnv); err != nil {
		logger.Base().Error("Failed to initialize zap logger, falling back to std log")
	}

	router := mux.NewRouter()

	handlerManager, err := handler.NewHandlerManager(cfg)
	if err != nil {
		logger.Base().Error("Failed to initialize handler manager", zap.Error(err))
		return nil
	}

	handlerManager.SetupAllRoutes(router)

	return &Server{
		config:         cfg,
		router:         router,
		handlerManager: handlerManager,
	}
}

// Start starts the call transfer server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.config.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Base().Info("Starting server",
		zap.String("addr", addr),
		zap.String("public_url", s.config.BaseURL()))
	return server.ListenAndServe()
}

// placeDemoOutboundCall rings the configured outbound number and bridges it
// to a fresh Ultravox agent, mirroring what POST /api/outbound does.
func (s *Server) placeDemoOutboundCall() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := s.handlerManager.InitiateOutbound(ctx, handler.InitiateOutboundRequest{})
	if err != nil {
		logger.Base().Error("failed to place demo outbound call", zap.Error(err))
		return
	}
	logger.Base().Info("demo outbound call placed",
		zap.String("session_id", result.SessionID),
		zap.String("provider_call_sid", result.ProviderCallSID))
}

// LoadConfigFromEnv loads the transfer service configuration from environment
func LoadConfigFromEnv() *config.TransferConfig {
	return &config.TransferConfig{
		Port:   getEnvOrDefault("API_PORT", "3000"),
		LogEnv: getEnvOrDefault("LOG_ENV", ""),

		TwilioAccountSID:  getEnvOrDefault("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnvOrDefault("TWILIO_PHONE_NUMBER", ""),

		PublicBaseURL: getEnvOrDefault("NGROK_URL", ""),
		ServiceAPIKey: getEnvOrDefault("SERVICE_API_KEY", ""),

		UltravoxAPIKey: getEnvOrDefault("ULTRAVOX_API_KEY", ""),
		UltravoxAPIURL: getEnvOrDefault("ULTRAVOX_API_URL", ""),

		DestinationPhoneNumber: getEnvOrDefault("DESTINATION_PHONE_NUMBER", ""),
		OutboundPhoneNumber:    getEnvOrDefault("OUTBOUND_PHONE_NUMBER", ""),

		RegistryBackend: getEnvOrDefault("REGISTRY_BACKEND", "memory"),
		RedisHost:       getEnvOrDefault("REDIS_HOST", "localhost"),
		RedisPort:       getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:   getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsIntOrDefault("REDIS_DB", 0),

		JoinPollInterval: getEnvAsDurationOrDefault("JOIN_POLL_INTERVAL", 500*time.Millisecond),
		JoinPollTimeout:  getEnvAsDurationOrDefault("JOIN_POLL_TIMEOUT", 10*time.Second),
	}
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault gets environment variable as duration or returns default
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func main() {
	placeOutbound := flag.Bool("outbound", false, "place the demo outbound call after startup")
	flag.Parse()

	// Load .env file for local development if it exists. This will not
	// override environment variables set by the deployment.
	if err := godotenv.Load(); err != nil {
		log.Printf("Info: .env file not found or skipped (expected in production): %v", err)
	}

	cfg := LoadConfigFromEnv()

	server := NewServer(cfg)
	if server == nil {
		log.Fatal("Failed to create server")
	}
	defer logger.Sync()
	logger.Base().Info("Server initialized successfully",
		zap.String("port", cfg.Port),
		zap.String("registry_backend", cfg.RegistryBackend))

	if *placeOutbound {
		go server.placeDemoOutboundCall()
	}

	if err := server.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
